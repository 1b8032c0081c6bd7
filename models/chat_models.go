package models

// Mode selects how a request is answered: a single conversational reply
// or a ranked list of search results.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeSearch Mode = "search"
)

// IsValid reports whether the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == ModeChat || m == ModeSearch
}

// ChatRequest represents an incoming chat or search request
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
	Mode     Mode   `json:"mode,omitempty"`
}

// ChatResponse represents the response returned to the caller
type ChatResponse struct {
	Message       string         `json:"message"`
	ThreadID      string         `json:"thread_id"`
	Mode          string         `json:"mode"`
	Citations     []Citation     `json:"citations,omitempty"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
}

// ErrorResponse represents an error payload for failed requests
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// HealthResponse represents the health check payload
type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}
