package response

import (
	"errors"
	"net/http"

	"github.com/mcrud/mcrud/internal/filter"
	"github.com/mcrud/mcrud/internal/integrity"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/query"
)

// RenderError writes an error envelope with a null data member
func RenderError(w http.ResponseWriter, statusCode int, message string, errs ...error) {
	RenderJSON(w, statusCode, &Envelope{
		Status:  StatusError,
		Message: optional(message),
		Errors:  messages(errs),
	})
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, err error) {
	RenderError(w, http.StatusBadRequest, "bad request", err)
}

// RenderUnauthorized renders a 401 Unauthorized error
func RenderUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	RenderError(w, http.StatusUnauthorized, message)
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "resource not found"
	}
	RenderError(w, http.StatusNotFound, message)
}

// RenderMethodNotAllowed renders a 405 Method Not Allowed error
func RenderMethodNotAllowed(w http.ResponseWriter) {
	RenderError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// RenderInternalError renders a 500 Internal Server Error
func RenderInternalError(w http.ResponseWriter, err error) {
	if err == nil {
		RenderError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	RenderError(w, http.StatusInternalServerError, "internal server error", err)
}

// StatusFor maps a domain error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, filter.ErrMalformedFilter),
		errors.Is(err, query.ErrInvalidParam),
		errors.Is(err, ErrInvalidBody),
		errors.Is(err, integrity.ErrNoRelatedDocuments):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, integrity.ErrOwnerNotFound),
		errors.Is(err, relationships.ErrUnknownRelationship):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidBody is returned when a request body cannot be decoded
var ErrInvalidBody = errors.New("invalid request body")

// RenderFailure renders err with the status StatusFor maps it to
func RenderFailure(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		RenderBadRequest(w, err)
	case http.StatusNotFound:
		RenderError(w, status, err.Error())
	default:
		RenderInternalError(w, err)
	}
}
