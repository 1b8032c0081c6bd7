package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentsClientCreateThread(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads", r.URL.Path)
		assert.Equal(t, "2025-05-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"id": "thread_9"})
	}))
	defer server.Close()

	client := NewAgentsClient(server.URL, "test-key", testLogger())
	threadID, err := client.CreateThread(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "thread_9", threadID)
}

func TestAgentsClientRunAgentPollsUntilTerminal(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "agent_1", body["assistant_id"])
			json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": "queued"})
		default:
			polls++
			status := "in_progress"
			if polls >= 2 {
				status = "completed"
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": status})
		}
	}))
	defer server.Close()

	client := NewAgentsClient(server.URL, "", testLogger())
	client.pollInterval = time.Millisecond

	result, err := client.RunAgent(context.Background(), "thread_1", "agent_1")

	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, 2, polls)
}

func TestAgentsClientRunAgentReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "run_1",
			"status":     "failed",
			"last_error": map[string]string{"code": "server_error", "message": "model overloaded"},
		})
	}))
	defer server.Close()

	client := NewAgentsClient(server.URL, "", testLogger())
	client.pollInterval = time.Millisecond

	result, err := client.RunAgent(context.Background(), "thread_1", "agent_1")

	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, "model overloaded", result.LastError)
}

func TestAgentsClientRunAgentHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": "in_progress"})
	}))
	defer server.Close()

	client := NewAgentsClient(server.URL, "", testLogger())
	client.pollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.RunAgent(ctx, "thread_1", "agent_1")
	require.Error(t, err)
}

func TestAgentsClientLatestAssistantMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"role": "assistant",
					"content": []map[string]interface{}{
						{
							"type": "text",
							"text": map[string]interface{}{
								"value": "Answer text",
								"annotations": []map[string]interface{}{
									{
										"type": "url_citation",
										"url_citation": map[string]string{
											"url":   "https://x/1",
											"title": "One",
										},
									},
								},
							},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewAgentsClient(server.URL, "", testLogger())
	msg, err := client.LatestAssistantMessage(context.Background(), "thread_1")

	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "Answer text", msg.Text)
	require.Len(t, msg.Annotations, 1)
	require.NotNil(t, msg.Annotations[0].URLCitation)
	assert.Equal(t, "https://x/1", msg.Annotations[0].URLCitation.URL)
}

func TestAgentsClientLatestAssistantMessageSkipsUserMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"role": "user", "content": []map[string]interface{}{}},
			},
		})
	}))
	defer server.Close()

	client := NewAgentsClient(server.URL, "", testLogger())
	msg, err := client.LatestAssistantMessage(context.Background(), "thread_1")

	require.NoError(t, err)
	assert.Nil(t, msg)
}
