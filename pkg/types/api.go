// Package types holds the JSON payloads of the dashboard HTTP API.
package types

// ModelNameRequest is the body of the stop, delete and pull endpoints.
type ModelNameRequest struct {
	// Model name as known to the daemon.
	// example: llama3:8b
	Name string `json:"name" validate:"required" example:"llama3:8b"`
	// Pull only: stream progress as NDJSON instead of a single result.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
}

// SearchRequest is the body of POST /api/models/search.
type SearchRequest struct {
	// Case-insensitive substring; empty matches every library model.
	// example: llama
	Keyword string `json:"keyword" example:"llama"`
}

// LibraryModel is one search hit.
type LibraryModel struct {
	// example: llama3
	Name string `json:"name" example:"llama3"`
	// Common size tags offered for the model.
	Tags []string `json:"tags"`
}

// SearchResponse is returned by POST /api/models/search.
type SearchResponse struct {
	Models []LibraryModel `json:"models"`
}

// ModelConfigRequest is the body of POST /api/models/{name}/config.
// Parameters keep the order in which the client sent them.
type ModelConfigRequest struct {
	// example: You are a concise assistant.
	System string `json:"system" example:"You are a concise assistant."`
	// example: {{ .System }} {{ .Prompt }}
	Template string `json:"template" example:"{{ .System }} {{ .Prompt }}"`
	// Map of PARAMETER name to value; non-string values are stringified.
	Parameters map[string]any `json:"parameters"`
}

// ResultResponse reports the outcome of a mutating model operation.
type ResultResponse struct {
	// example: true
	Success bool `json:"success" example:"true"`
	// example: The model llama3 has been stopped successfully
	Message string `json:"message" example:"The model llama3 has been stopped successfully"`
}

// ServerURLResponse is returned by GET /api/server/url.
type ServerURLResponse struct {
	// Daemon address serving this request.
	// example: http://localhost:11434
	URL string `json:"url" example:"http://localhost:11434"`
}

// ServerStatusResponse is returned by GET /api/server/status.
type ServerStatusResponse struct {
	// running or stopped.
	// example: running
	Status string `json:"status" example:"running"`
}

// Server status values.
const (
	ServerRunning = "running"
	ServerStopped = "stopped"
)

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unable to connect to Ollama server
	Error string `json:"error" example:"unable to connect to Ollama server"`
	// Error class: validation_error, connection_error or error.
	// example: connection_error
	Status string `json:"status" example:"connection_error"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}

// Error classes carried in ErrorResponse.Status.
const (
	StatusValidationError = "validation_error"
	StatusConnectionError = "connection_error"
	StatusError           = "error"
)
