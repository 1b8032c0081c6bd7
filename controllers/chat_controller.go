package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wknums/va-chat/models"
)

// Instructions appended to the user's message before posting it onto the
// thread, per mode.
const (
	searchInstruction = " - is the user's search question. - provide a traditional bing search response - i.e. a comprehensive list of all web pages with clickable urls that contain the search term provided - sorted by decreasing relevance"
	chatInstruction   = "\n\nIMPORTANT: Format your response to be clear and readable. Use proper line breaks, bullet points, and paragraph spacing as appropriate for the content."
)

// ChatHandler processes chat and search requests through the dual-agent
// orchestrator.
func (c *Controller) ChatHandler(w http.ResponseWriter, r *http.Request) {
	c.handleChat(w, r, "")
}

// SearchHandler is an alias for ChatHandler with the mode forced to
// search.
func (c *Controller) SearchHandler(w http.ResponseWriter, r *http.Request) {
	c.handleChat(w, r, models.ModeSearch)
}

// handleChat decodes the request, runs the orchestrator and shapes the
// response per mode. forceMode overrides whatever mode the request
// carries when non-empty.
func (c *Controller) handleChat(w http.ResponseWriter, r *http.Request, forceMode models.Mode) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		c.writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	if forceMode != "" {
		req.Mode = forceMode
	}
	if req.Mode == "" {
		req.Mode = models.ModeChat
	}
	if !req.Mode.IsValid() {
		c.writeError(w, http.StatusBadRequest, "Mode must be 'chat' or 'search'")
		return
	}

	requestLog := c.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"mode":       req.Mode,
	})
	requestLog.Infof("Chat request: %.50s...", req.Message)

	ctx, cancel := context.WithTimeout(r.Context(), c.agentTimeout)
	defer cancel()

	exchange, err := c.chat.ProcessMessage(ctx, decorateMessage(req.Message, req.Mode), req.ThreadID, req.Mode)
	if err != nil {
		requestLog.Errorf("Error processing chat request: %v", err)
		c.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := models.ChatResponse{
		Message:   exchange.Text,
		ThreadID:  exchange.ThreadID,
		Mode:      string(req.Mode),
		Citations: exchange.Citations,
	}

	if req.Mode == models.ModeSearch {
		// Parse the heading-free text so display headings inserted by
		// the merge don't end up as result titles.
		searchText := exchange.RawText
		if searchText == "" {
			searchText = exchange.Text
		}
		response.SearchResults = c.formatter.FormatAsSearchResults(searchText, exchange.Citations, true)
	}

	c.writeJSON(w, http.StatusOK, response)
}

// decorateMessage appends the mode-specific response-shape instruction
// to the user's message.
func decorateMessage(message string, mode models.Mode) string {
	if mode == models.ModeSearch {
		return message + searchInstruction
	}
	return message + chatInstruction
}
