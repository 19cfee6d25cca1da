package controllers

import (
	"errors"
	"net/http"

	"project-report-api/services"

	"github.com/gin-gonic/gin"
)

// reportService is wired once from main. Package-level so handlers stay plain
// functions; tests swap it for a service built on a fake store.
var reportService *services.ReportService

// InitReportService installs the service used by the report handlers.
func InitReportService(s *services.ReportService) {
	reportService = s
}

// currentIdentity pulls the verified caller identity set by AuthMiddleware.
func currentIdentity(c *gin.Context) (services.Identity, bool) {
	userID, ok := c.Get("userID")
	if !ok {
		return services.Identity{}, false
	}
	name, _ := c.Get("name")
	email, _ := c.Get("email")
	role, _ := c.Get("role")

	id := services.Identity{UserID: userID.(int)}
	if s, ok := name.(string); ok {
		id.Name = s
	}
	if s, ok := email.(string); ok {
		id.Email = s
	}
	if s, ok := role.(string); ok {
		id.Role = s
	}
	return id, true
}

// respondServiceError maps the service error taxonomy onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPrecondition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStorage):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
