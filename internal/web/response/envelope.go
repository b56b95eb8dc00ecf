package response

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every collection response
type Envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data"`
	Message *string     `json:"message"`
	Errors  []string    `json:"errors,omitempty"`
}

// RenderJSON writes v as JSON with the given status code
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// RenderSuccess writes a 200 success envelope. An empty message is rendered as null.
func RenderSuccess(w http.ResponseWriter, data interface{}, message string) {
	RenderJSON(w, http.StatusOK, &Envelope{
		Status:  StatusSuccess,
		Data:    data,
		Message: optional(message),
	})
}

// RenderDegraded writes a 500 envelope that still carries data. It is used
// when the primary write succeeded but follow-up reference maintenance failed.
func RenderDegraded(w http.ResponseWriter, data interface{}, message string, errs []error) {
	RenderJSON(w, http.StatusInternalServerError, &Envelope{
		Status:  StatusError,
		Data:    data,
		Message: optional(message),
		Errors:  messages(errs),
	})
}

func optional(message string) *string {
	if message == "" {
		return nil
	}
	return &message
}

func messages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
