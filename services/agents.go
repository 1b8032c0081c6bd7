package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wknums/va-chat/models"
)

// Run statuses reported by the agent service.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
	RunStatusExpired   = "expired"
)

// RunResult carries the terminal status of an agent run plus the error
// detail the service attached when the run failed.
type RunResult struct {
	Status    string
	LastError string
}

// Failed reports whether the run ended without producing a response.
func (r *RunResult) Failed() bool {
	return r.Status != RunStatusCompleted
}

// AssistantMessage is the most recent assistant reply on a thread,
// including whatever citation annotations the agent attached.
type AssistantMessage struct {
	Text        string
	Annotations []models.Annotation
}

// AgentsClient talks to the external agent service over its REST API:
// thread creation, message posting, run execution and message listing.
type AgentsClient struct {
	endpoint     string
	apiKey       string
	apiVersion   string
	httpClient   *http.Client
	pollInterval time.Duration
	log          *logrus.Logger
}

// NewAgentsClient creates a client for the agent service at the given
// project endpoint.
func NewAgentsClient(endpoint, apiKey string, log *logrus.Logger) *AgentsClient {
	return &AgentsClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: "2025-05-01",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		pollInterval: time.Second,
		log:          log,
	}
}

// Wire types for the agent service API.

type threadEnvelope struct {
	ID string `json:"id"`
}

type runEnvelope struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	LastError *runError `json:"last_error,omitempty"`
}

type runError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type messageList struct {
	Data []threadMessage `json:"data"`
}

type threadMessage struct {
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

type messageContent struct {
	Type string       `json:"type"`
	Text *messageText `json:"text,omitempty"`
}

type messageText struct {
	Value       string              `json:"value"`
	Annotations []models.Annotation `json:"annotations,omitempty"`
}

// CreateThread creates a new conversation thread and returns its ID.
func (a *AgentsClient) CreateThread(ctx context.Context) (string, error) {
	var thread threadEnvelope
	if err := a.doJSON(ctx, http.MethodPost, "/threads", map[string]interface{}{}, &thread); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	if thread.ID == "" {
		return "", fmt.Errorf("agent service returned a thread without an ID")
	}
	return thread.ID, nil
}

// CreateMessage posts a message onto a thread.
func (a *AgentsClient) CreateMessage(ctx context.Context, threadID, role, content string) error {
	body := map[string]string{
		"role":    role,
		"content": content,
	}
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if err := a.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// RunAgent executes the given agent on a thread and waits for the run to
// reach a terminal state, polling at a fixed interval under the caller's
// context. A failed run is not a transport error; it surfaces via the
// returned status so the orchestrator can apply its fallback rules.
func (a *AgentsClient) RunAgent(ctx context.Context, threadID, agentID string) (*RunResult, error) {
	body := map[string]string{
		"assistant_id": agentID,
	}

	var run runEnvelope
	path := fmt.Sprintf("/threads/%s/runs", threadID)
	if err := a.doJSON(ctx, http.MethodPost, path, body, &run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	for !terminalRunStatus(run.Status) {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("run %s did not finish: %w", run.ID, ctx.Err())
		case <-time.After(a.pollInterval):
		}

		pollPath := fmt.Sprintf("/threads/%s/runs/%s", threadID, run.ID)
		if err := a.doJSON(ctx, http.MethodGet, pollPath, nil, &run); err != nil {
			return nil, fmt.Errorf("failed to poll run %s: %w", run.ID, err)
		}
	}

	result := &RunResult{Status: run.Status}
	if run.LastError != nil {
		result.LastError = run.LastError.Message
	}
	return result, nil
}

// LatestAssistantMessage fetches the most recent message on a thread and
// returns it when it is an assistant text message, nil otherwise.
func (a *AgentsClient) LatestAssistantMessage(ctx context.Context, threadID string) (*AssistantMessage, error) {
	var list messageList
	path := fmt.Sprintf("/threads/%s/messages?order=desc&limit=1", threadID)
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	if len(list.Data) == 0 || list.Data[0].Role != "assistant" {
		return nil, nil
	}

	for _, content := range list.Data[0].Content {
		if content.Text != nil {
			return &AssistantMessage{
				Text:        content.Text.Value,
				Annotations: content.Text.Annotations,
			}, nil
		}
	}
	return nil, nil
}

// doJSON performs one request against the agent service, encoding body
// and decoding the response into out when provided.
func (a *AgentsClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	url := a.endpoint + path
	if a.apiVersion != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		url += sep + "api-version=" + a.apiVersion
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agent service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func terminalRunStatus(status string) bool {
	switch status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// GetStatus returns the status of the agents client
func (a *AgentsClient) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"endpoint": a.endpoint,
		"timeout":  a.httpClient.Timeout.String(),
	}

	if a.apiKey != "" {
		if len(a.apiKey) > 8 {
			status["api_key"] = a.apiKey[:4] + "..." + a.apiKey[len(a.apiKey)-4:]
		} else {
			status["api_key"] = "***"
		}
	} else {
		status["api_key"] = "ambient credentials"
	}

	return status
}
