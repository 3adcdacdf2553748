package services

import (
	"errors"
	"net/http"
)

// Failure kinds surfaced to callers. Each maps to its own HTTP status so a
// client can tell "too late to edit" from "insufficient balance" from
// "not found" without parsing messages.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrStorage           = errors.New("storage failure")
)

// StatusForError maps a domain error to its HTTP status code.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, ErrEditWindowExpired):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
