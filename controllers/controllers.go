package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wknums/va-chat/models"
	"github.com/wknums/va-chat/services"
)

// ServiceName and ServiceVersion identify the API in info and health
// payloads.
const (
	ServiceName    = "VA Chatbot API"
	ServiceVersion = "1.0.0"
)

// Controller wires HTTP requests to the chat orchestrator and result
// formatter.
type Controller struct {
	chat         *services.ChatService
	formatter    *services.FormatterService
	agents       *services.AgentsClient
	urlMap       *services.URLMapService
	agentTimeout time.Duration
	log          *logrus.Logger
}

// NewController creates a new controller instance
func NewController(chat *services.ChatService, formatter *services.FormatterService, agents *services.AgentsClient, urlMap *services.URLMapService, agentTimeout time.Duration, log *logrus.Logger) *Controller {
	return &Controller{
		chat:         chat,
		formatter:    formatter,
		agents:       agents,
		urlMap:       urlMap,
		agentTimeout: agentTimeout,
		log:          log,
	}
}

// writeJSON writes a JSON response with the given status code.
func (c *Controller) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		c.log.Errorf("Error encoding response: %v", err)
	}
}

// writeError writes a JSON error payload.
func (c *Controller) writeError(w http.ResponseWriter, statusCode int, message string) {
	c.writeJSON(w, statusCode, models.ErrorResponse{
		Error:  message,
		Status: models.StatusError,
	})
}
