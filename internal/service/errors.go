package service

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized is matched by request errors with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is matched by request errors with status 404.
	ErrNotFound = errors.New("not found")

	// ErrTimeout is returned when a backend call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
)

// FallbackMessage is used when the backend's error body carries no message.
const FallbackMessage = "request failed"

// RequestError is a non-success response from the backend.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return FallbackMessage
	}
	return e.Message
}

// Is lets callers match status classes with errors.Is.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
