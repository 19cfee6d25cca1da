package controllers

import (
	"fmt"
	"io"
	"net/http"

	"project-report-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxReportSize bounds the uploaded document payload.
const maxReportSize = 20 << 20 // 20 MB

// SubmitReport handles a student's multipart report submission.
func SubmitReport(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	title := utils.SanitizeInput(c.PostForm("projectTitle"))
	fileHeader, err := c.FormFile("report")
	if title == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and PDF required"})
		return
	}
	if fileHeader.Size > maxReportSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large (max 20 MB)"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	if !utils.IsPDF(data) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file must be a PDF"})
		return
	}

	report, err := reportService.Submit(c.Request.Context(), actor, title, data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Report submitted",
		"id":      report.ReportID,
	})
}

// GetMyReports lists the caller's own reports, newest first.
func GetMyReports(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	reports, err := reportService.ListByOwner(c.Request.Context(), actor.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetAllReports lists every report for the reviewer view, newest first.
func GetAllReports(c *gin.Context) {
	reports, err := reportService.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReportDocument streams the stored document payload to the owner or a
// reviewer.
func GetReportDocument(c *gin.Context) {
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

	report, err := reportService.GetDocument(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	contentType := report.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", report.OriginalFilename))
	c.Data(http.StatusOK, contentType, report.FileData)
}

// DeleteReport permanently removes a report. Owners may delete their own;
// reviewer roles may delete any.
func DeleteReport(c *gin.Context) {
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

	if err := reportService.Delete(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}
