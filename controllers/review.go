package controllers

import (
	"fmt"
	"net/http"

	"project-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApproveReport marks a report approved. Safe to repeat; re-approving a
// rejected report clears the recorded reason.
func ApproveReport(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return
	}

	actor, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	if err := reportService.Approve(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report approved"})
}

// RejectReport marks a report rejected and queues the rejection notice to the
// student. The transition is durable before any send; "dispatch" in the
// response tells the reviewer whether the mail already went out.
func RejectReport(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return
	}

	actor, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; an empty reason falls back to the default.
	_ = c.ShouldBindJSON(&req)

	dispatch, err := reportService.Reject(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Report rejected",
		"dispatch": dispatch,
	})
}

// IssueCertificate renders and returns the completion certificate for an
// approved report, and queues it to the student as a mail attachment. The
// document is returned whatever the dispatch outcome.
func IssueCertificate(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return
	}

	actor, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	pdf, dispatch, err := reportService.IssueCertificate(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("X-Dispatch", dispatch)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", services.CertificateFilename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
