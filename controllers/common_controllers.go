package controllers

import (
	"net/http"

	"github.com/wknums/va-chat/models"
)

// IndexHandler returns service information
func (c *Controller) IndexHandler(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"health": "/api/health",
			"chat":   "/api/chat",
			"search": "/api/search",
		},
	})
}

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: ServiceVersion,
		Detail: map[string]interface{}{
			"agents":  c.agents.GetStatus(),
			"chat":    c.chat.GetStatus(),
			"url_map": c.urlMap.GetStatus(),
		},
	})
}
