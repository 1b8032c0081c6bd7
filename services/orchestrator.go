package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wknums/va-chat/models"
)

// AgentClient is the capability the orchestrator needs from the external
// agent service.
type AgentClient interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, role, content string) error
	RunAgent(ctx context.Context, threadID, agentID string) (*RunResult, error)
	LatestAssistantMessage(ctx context.Context, threadID string) (*AssistantMessage, error)
}

// Exchange is the orchestrator's terminal output for one request.
type Exchange struct {
	Text      string
	ThreadID  string
	Citations []models.Citation

	// RawText is the search-mode concatenation of both agents' replies
	// without display headings, kept separately so paragraph-based
	// parsing is not corrupted by them. Empty in chat mode.
	RawText string
}

// runState tracks the per-request conversation state machine.
type runState int

const (
	stateThreadReady runState = iota
	statePrimaryRunning
	statePrimaryDone
	statePrimaryFailed
	stateFallbackRunning
	stateFallbackDone
	stateFallbackFailed
	stateMerged
)

// exchangeState accumulates both agents' outputs while the state machine
// advances.
type exchangeState struct {
	mode     models.Mode
	threadID string

	primaryText      string
	primaryCitations []models.Citation
	primaryFailed    bool

	// useFallback records that the decision rule explicitly selected
	// the fallback agent; the chat-mode merge precedence depends on it.
	useFallback bool

	fallbackText      string
	fallbackCitations []models.Citation
}

// ChatService orchestrates the two managed agents over one conversation
// thread: primary (knowledge-base) first, fallback (web search)
// conditionally, merged per mode.
type ChatService struct {
	client          AgentClient
	citations       *CitationService
	policy          models.ReconcilePolicy
	primaryAgentID  string
	fallbackAgentID string
	log             *logrus.Logger
}

// NewChatService creates the orchestrator. fallbackAgentID may be empty,
// in which case fallback invocations are skipped silently.
func NewChatService(client AgentClient, citations *CitationService, policy models.ReconcilePolicy, primaryAgentID, fallbackAgentID string, log *logrus.Logger) *ChatService {
	return &ChatService{
		client:          client,
		citations:       citations,
		policy:          policy,
		primaryAgentID:  primaryAgentID,
		fallbackAgentID: fallbackAgentID,
		log:             log,
	}
}

// ProcessMessage posts the message onto the conversation thread
// (creating one when threadID is empty), runs the primary agent, decides
// whether the fallback agent runs too, and merges the outcome per mode.
// Partial failure of one agent is absorbed by the fallback rules; only
// unrecoverable faults return an error.
func (s *ChatService) ProcessMessage(ctx context.Context, message, threadID string, mode models.Mode) (*Exchange, error) {
	if threadID == "" {
		created, err := s.client.CreateThread(ctx)
		if err != nil {
			return nil, err
		}
		threadID = created
		s.log.Infof("Created new thread: %s", threadID)
	} else {
		s.log.Infof("Using existing thread: %s", threadID)
	}

	if err := s.client.CreateMessage(ctx, threadID, "user", message); err != nil {
		return nil, err
	}

	ex := &exchangeState{mode: mode, threadID: threadID}

	state := stateThreadReady
	for state != stateMerged {
		var err error
		state, err = s.step(ctx, state, ex)
		if err != nil {
			return nil, err
		}
	}

	return s.merge(ex), nil
}

// step advances the state machine by one transition.
func (s *ChatService) step(ctx context.Context, state runState, ex *exchangeState) (runState, error) {
	switch state {
	case stateThreadReady:
		return statePrimaryRunning, nil
	case statePrimaryRunning:
		return s.runPrimary(ctx, ex)
	case statePrimaryDone:
		if s.shouldRunFallback(ex) {
			return stateFallbackRunning, nil
		}
		return stateMerged, nil
	case statePrimaryFailed:
		// Only reachable in search mode; the fallback may still salvage
		// the request.
		if s.fallbackAgentID != "" {
			ex.useFallback = true
			return stateFallbackRunning, nil
		}
		return stateMerged, nil
	case stateFallbackRunning:
		return s.runFallback(ctx, ex)
	case stateFallbackDone, stateFallbackFailed:
		return stateMerged, nil
	}
	return stateMerged, fmt.Errorf("unknown orchestrator state %d", state)
}

// runPrimary executes the knowledge-base agent. A failed run is fatal in
// chat mode and tolerated as "no primary result" in search mode.
func (s *ChatService) runPrimary(ctx context.Context, ex *exchangeState) (runState, error) {
	s.log.Infof("Calling primary agent (AI Search): %s", s.primaryAgentID)

	run, err := s.client.RunAgent(ctx, ex.threadID, s.primaryAgentID)
	if err != nil {
		return statePrimaryFailed, fmt.Errorf("primary agent run failed: %w", err)
	}
	if run.Failed() {
		s.log.Errorf("Primary agent run failed: %s", run.LastError)
		if ex.mode != models.ModeSearch {
			return statePrimaryFailed, fmt.Errorf("primary agent run failed: %s", run.LastError)
		}
		ex.primaryFailed = true
		return statePrimaryFailed, nil
	}

	text, citations, err := s.readAssistantMessage(ctx, ex.threadID, models.SourceKnowledgeBase)
	if err != nil {
		return statePrimaryFailed, err
	}
	ex.primaryText = text
	ex.primaryCitations = citations
	s.log.Infof("Primary agent citations: %d", len(citations))
	return statePrimaryDone, nil
}

// shouldRunFallback applies the fallback decision rule after a
// successful primary run.
func (s *ChatService) shouldRunFallback(ex *exchangeState) bool {
	if s.fallbackAgentID == "" {
		return false
	}

	if ex.mode == models.ModeSearch {
		// Always combine both sources in search mode.
		ex.useFallback = true
		s.log.Info("Search mode: will run both agents to combine results")
		return true
	}

	if s.indicatesNoResults(ex.primaryText) {
		s.log.Info("Primary agent found no results, will try fallback")
		ex.useFallback = true
		return true
	}
	if len(ex.primaryCitations) == 0 && len(strings.TrimSpace(ex.primaryText)) < s.policy.ShortResponseThreshold {
		s.log.Info("Primary agent returned short response with no citations, will try fallback")
		ex.useFallback = true
		return true
	}
	return false
}

// runFallback executes the web-search agent. Its failure never
// propagates: chat mode falls back to whatever primary text exists, and
// search mode carries on with whichever side succeeded.
func (s *ChatService) runFallback(ctx context.Context, ex *exchangeState) (runState, error) {
	s.log.Infof("Calling fallback agent (Bing): %s", s.fallbackAgentID)

	run, err := s.client.RunAgent(ctx, ex.threadID, s.fallbackAgentID)
	if err != nil {
		s.log.Errorf("Fallback agent run failed: %v", err)
		return stateFallbackFailed, nil
	}
	if run.Failed() {
		s.log.Errorf("Fallback agent run failed: %s", run.LastError)
		return stateFallbackFailed, nil
	}

	text, citations, err := s.readAssistantMessage(ctx, ex.threadID, models.SourceWebSearch)
	if err != nil {
		s.log.Errorf("Could not read fallback response: %v", err)
		return stateFallbackFailed, nil
	}
	ex.fallbackText = text
	ex.fallbackCitations = citations
	s.log.Infof("Fallback agent citations: %d", len(citations))
	return stateFallbackDone, nil
}

// readAssistantMessage fetches the latest assistant reply on the thread
// and normalizes its annotations into citations.
func (s *ChatService) readAssistantMessage(ctx context.Context, threadID string, source models.CitationSource) (string, []models.Citation, error) {
	msg, err := s.client.LatestAssistantMessage(ctx, threadID)
	if err != nil {
		return "", nil, err
	}
	if msg == nil {
		return "", nil, nil
	}

	var citations []models.Citation
	for idx, ann := range msg.Annotations {
		if citation := s.citations.Normalize(ann, idx, source); citation != nil {
			citations = append(citations, *citation)
		}
	}
	return msg.Text, citations, nil
}

// merge produces the terminal exchange from whatever both agents
// returned, per the active mode.
func (s *ChatService) merge(ex *exchangeState) *Exchange {
	if ex.mode == models.ModeSearch {
		return s.mergeSearch(ex)
	}
	return s.mergeChat(ex)
}

// mergeSearch concatenates both replies under display headings, keeping
// the heading-free concatenation separately for text parsing. A side is
// excluded when empty or carrying the no-results sentinel; citations
// concatenate primary-first without deduplication.
func (s *ChatService) mergeSearch(ex *exchangeState) *Exchange {
	var combined, raw strings.Builder

	if ex.primaryText != "" && !ex.primaryFailed &&
		!strings.Contains(ex.primaryText, s.policy.NoResultsSentinel) {
		combined.WriteString("## Knowledge Base Results\n\n" + ex.primaryText + "\n\n")
		raw.WriteString(ex.primaryText + "\n\n")
	}

	if ex.fallbackText != "" &&
		!strings.Contains(ex.fallbackText, s.policy.NoResultsSentinel) {
		combined.WriteString("## Web Search Results\n\n" + ex.fallbackText)
		raw.WriteString(ex.fallbackText)
	}

	text := combined.String()
	rawText := raw.String()
	if strings.TrimSpace(text) == "" {
		text = ex.fallbackText
		rawText = ex.fallbackText
	}

	citations := append(append([]models.Citation{}, ex.primaryCitations...), ex.fallbackCitations...)
	if len(citations) == 0 {
		citations = nil
	}

	s.log.Infof("Combined search results: %d from AI Search, %d from Bing",
		len(ex.primaryCitations), len(ex.fallbackCitations))

	return &Exchange{
		Text:      text,
		ThreadID:  ex.threadID,
		Citations: citations,
		RawText:   strings.TrimSpace(rawText),
	}
}

// mergeChat prefers the fallback reply when it produced text and either
// the primary produced none or the decision rule selected the fallback.
// The primary-empty arm holds even when the heuristic never fired.
func (s *ChatService) mergeChat(ex *exchangeState) *Exchange {
	if ex.fallbackText != "" && (ex.primaryText == "" || ex.useFallback) {
		s.log.Info("Chat mode: using fallback response")
		return &Exchange{
			Text:      ex.fallbackText,
			ThreadID:  ex.threadID,
			Citations: ex.fallbackCitations,
		}
	}

	s.log.Info("Chat mode: using primary response")
	return &Exchange{
		Text:      ex.primaryText,
		ThreadID:  ex.threadID,
		Citations: ex.primaryCitations,
	}
}

// indicatesNoResults checks the primary response against the policy's
// trigger substrings, case-insensitively.
func (s *ChatService) indicatesNoResults(text string) bool {
	lowered := strings.ToLower(text)
	for _, indicator := range s.policy.NoResultsIndicators {
		if strings.Contains(lowered, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// GetStatus returns the status of the chat service
func (s *ChatService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"primary_agent": s.primaryAgentID,
	}
	if s.fallbackAgentID != "" {
		status["fallback_agent"] = s.fallbackAgentID
	} else {
		status["fallback_agent"] = "not configured"
	}
	return status
}
