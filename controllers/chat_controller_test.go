package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wknums/va-chat/models"
	"github.com/wknums/va-chat/services"
)

// stubAgentClient returns scripted responses per agent ID.
type stubAgentClient struct {
	messages  map[string]*services.AssistantMessage
	runErr    error
	lastAgent string
	posted    []string
}

func (s *stubAgentClient) CreateThread(ctx context.Context) (string, error) {
	return "thread_abc", nil
}

func (s *stubAgentClient) CreateMessage(ctx context.Context, threadID, role, content string) error {
	s.posted = append(s.posted, content)
	return nil
}

func (s *stubAgentClient) RunAgent(ctx context.Context, threadID, agentID string) (*services.RunResult, error) {
	s.lastAgent = agentID
	if s.runErr != nil {
		return nil, s.runErr
	}
	return &services.RunResult{Status: services.RunStatusCompleted}, nil
}

func (s *stubAgentClient) LatestAssistantMessage(ctx context.Context, threadID string) (*services.AssistantMessage, error) {
	return s.messages[s.lastAgent], nil
}

func newTestController(stub *stubAgentClient) *Controller {
	log := logrus.New()
	log.SetOutput(io.Discard)

	policy := models.DefaultReconcilePolicy()
	urlMap := services.NewURLMapService(log)
	citations := services.NewCitationService(policy, urlMap, log)
	formatter := services.NewFormatterService(policy, citations, log)
	chat := services.NewChatService(stub, citations, policy, "agent_primary", "agent_fallback", log)
	agents := services.NewAgentsClient("https://example.services.ai", "", log)

	return NewController(chat, formatter, agents, urlMap, 5*time.Second, log)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func TestChatHandlerRejectsInvalidJSON(t *testing.T) {
	c := newTestController(&stubAgentClient{})

	recorder := postJSON(t, c.ChatHandler, "{not json")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestChatHandlerRejectsEmptyMessage(t *testing.T) {
	c := newTestController(&stubAgentClient{})

	recorder := postJSON(t, c.ChatHandler, `{"message": "   "}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestChatHandlerRejectsUnknownMode(t *testing.T) {
	c := newTestController(&stubAgentClient{})

	recorder := postJSON(t, c.ChatHandler, `{"message": "hi", "mode": "broadcast"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestChatHandlerChatMode(t *testing.T) {
	stub := &stubAgentClient{
		messages: map[string]*services.AssistantMessage{
			"agent_primary": {
				Text: strings.Repeat("Detailed answer about enrollment. ", 10),
				Annotations: []models.Annotation{
					{URLCitation: &models.URLCitation{URL: "https://x/enroll", Title: "Enrollment"}},
				},
			},
		},
	}
	c := newTestController(stub)

	recorder := postJSON(t, c.ChatHandler, `{"message": "how do I enroll?"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response models.ChatResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

	assert.Equal(t, "chat", response.Mode)
	assert.Equal(t, "thread_abc", response.ThreadID)
	assert.Contains(t, response.Message, "Detailed answer")
	require.Len(t, response.Citations, 1)
	assert.Equal(t, "Enrollment", response.Citations[0].Title)
	assert.Nil(t, response.SearchResults)

	// Chat mode decorates the posted message with formatting guidance.
	require.Len(t, stub.posted, 1)
	assert.Contains(t, stub.posted[0], "how do I enroll?")
	assert.Contains(t, stub.posted[0], "Format your response")
}

func TestChatHandlerSearchMode(t *testing.T) {
	stub := &stubAgentClient{
		messages: map[string]*services.AssistantMessage{
			"agent_primary": {
				Text: "Knowledge base answer.",
				Annotations: []models.Annotation{
					{URLCitation: &models.URLCitation{URL: "https://kb/1", Title: "KB One", Snippet: "kb snippet"}},
				},
			},
			"agent_fallback": {
				Text: "Web answer.",
				Annotations: []models.Annotation{
					{URLCitation: &models.URLCitation{URL: "https://web/1", Title: "Web One", Snippet: "web snippet"}},
				},
			},
		},
	}
	c := newTestController(stub)

	recorder := postJSON(t, c.ChatHandler, `{"message": "benefits", "mode": "search"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response models.ChatResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

	assert.Equal(t, "search", response.Mode)
	assert.Contains(t, response.Message, "## Knowledge Base Results")
	assert.Contains(t, response.Message, "## Web Search Results")
	assert.Len(t, response.Citations, 2)
	require.Len(t, response.SearchResults, 2)
	assert.Equal(t, "KB One", response.SearchResults[0].Title)
	assert.Equal(t, "Web One", response.SearchResults[1].Title)
}

func TestSearchHandlerForcesSearchMode(t *testing.T) {
	stub := &stubAgentClient{
		messages: map[string]*services.AssistantMessage{
			"agent_primary":  {Text: "Primary."},
			"agent_fallback": {Text: "Fallback."},
		},
	}
	c := newTestController(stub)

	recorder := postJSON(t, c.SearchHandler, `{"message": "benefits", "mode": "chat"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response models.ChatResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

	assert.Equal(t, "search", response.Mode)
	assert.NotEmpty(t, response.SearchResults)
}

func TestChatHandlerMapsFaultsToGenericError(t *testing.T) {
	stub := &stubAgentClient{runErr: errors.New("connection reset")}
	c := newTestController(stub)

	recorder := postJSON(t, c.ChatHandler, `{"message": "hi"}`)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Internal server error", response.Error)
	assert.NotContains(t, response.Error, "connection reset")
}
