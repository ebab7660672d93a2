package apperr

import (
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestWrapKeepsBothChains(t *testing.T) {
	err := Wrap(ErrIOFailure, "documents.Store", io.ErrShortWrite)
	if !IsKind(err, ErrIOFailure) {
		t.Error("expected ErrIOFailure in chain")
	}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Error("expected cause in chain")
	}
	if got := err.Error(); got != "documents.Store: storage failure: short write" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(ErrIOFailure, "op", nil) != nil {
		t.Error("expected nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind error
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrInvalidType, http.StatusUnsupportedMediaType},
		{ErrUnreadableDocument, http.StatusUnprocessableEntity},
		{ErrLLMUnavailable, http.StatusBadGateway},
		{ErrEmbeddingUnavailable, http.StatusBadGateway},
		{ErrIOFailure, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := New(tt.kind, "op", "detail")
		if got := HTTPStatus(err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
	if HTTPStatus(nil) != http.StatusOK {
		t.Error("nil error should map to 200")
	}
}

func TestMessageHidesStorageDetail(t *testing.T) {
	err := Wrap(ErrIOFailure, "write", errors.New("/var/lib/docchat: permission denied"))
	if got := Message(err); got != "Internal error" {
		t.Errorf("Message = %q", got)
	}
}

func TestMessageStripsOperation(t *testing.T) {
	err := New(ErrInvalidInput, "rag.Ask", "Query cannot be empty")
	if got := Message(err); got != "Query cannot be empty" {
		t.Errorf("Message = %q", got)
	}
}

func TestIndexingFailedKeepsUnderlyingStatus(t *testing.T) {
	inner := New(ErrEmbeddingUnavailable, "embed", "timeout")
	err := Wrap(ErrIndexingFailed, "ingest.Upload", inner)
	if got := HTTPStatus(err); got != 502 {
		t.Errorf("HTTPStatus = %d, want 502", got)
	}
	if !IsKind(err, ErrIndexingFailed) || !IsKind(err, ErrEmbeddingUnavailable) {
		t.Error("both kinds must be reachable")
	}
}
