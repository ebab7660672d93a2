// Package apperr defines the error kinds shared by the document pipeline
// and maps them onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidType          = errors.New("invalid document type")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrInvalidInput         = errors.New("invalid input")
	ErrIOFailure            = errors.New("storage failure")
	ErrUnreadableDocument   = errors.New("unreadable document")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrLLMUnavailable       = errors.New("language model unavailable")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrDuplicate            = errors.New("already exists")
	ErrIndexingFailed       = errors.New("indexing failed")
)

// Wrap attaches an operation name and a kind to err. Both kind and err stay
// reachable through errors.Is. A nil err yields nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// New returns an error of the given kind with a plain message.
func New(kind error, op, msg string) error {
	return fmt.Errorf("%s: %w: %s", op, kind, msg)
}

// IsKind reports whether err carries kind anywhere in its chain.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}

// HTTPStatus maps an error to the status code returned to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrLLMUnavailable), errors.Is(err, ErrEmbeddingUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for err. Internal storage details
// are not exposed.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidType):
		return "Only PDF files are allowed"
	case errors.Is(err, ErrDuplicate):
		return "A document with this filename already exists"
	case errors.Is(err, ErrUnreadableDocument):
		return "The uploaded file could not be read as a PDF"
	case errors.Is(err, ErrIndexingFailed):
		return "The document was stored but could not be indexed"
	case errors.Is(err, ErrLLMUnavailable):
		return "The language model is currently unavailable"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "The embedding service is currently unavailable"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrInvalidInput):
		return detail(err, ErrInvalidInput)
	case errors.Is(err, ErrInvalidConfig):
		return detail(err, ErrInvalidConfig)
	default:
		return "Internal error"
	}
}

// detail returns the text following kind in err's message, so "op: invalid
// input: question is empty" becomes "question is empty".
func detail(err, kind error) string {
	msg := err.Error()
	marker := kind.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
