package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response body. Successful responses fill Data and Total; failures
// fill Message, Error and the correlation ids.
type Envelope struct {
	Status    int            `json:"status"`
	Data      any            `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
	Total     *int64         `json:"total,omitempty"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteData writes an envelope carrying data.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteEnvelope(w, Envelope{Status: status, Data: data})
}

// WritePage writes an envelope carrying a page of rows and the unpaged total.
func WritePage(w http.ResponseWriter, status int, data any, total int64) {
	WriteEnvelope(w, Envelope{Status: status, Data: data, Total: &total})
}

// WriteEnvelope serialises the envelope, omitting the body for 204 responses.
func WriteEnvelope(w http.ResponseWriter, env Envelope) {
	if env.Status == 0 {
		env.Status = http.StatusOK
	}
	if env.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Status)
	_ = json.NewEncoder(w).Encode(env)
}
