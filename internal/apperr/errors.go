// Package apperr defines the error taxonomy shared by the store, the chat
// service and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidArgument marks missing or malformed input, including self-chat.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrForbidden marks a caller acting on a chat it does not belong to, or a bad admin code.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned by lookups. Deleting a missing message is not an error.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity means an authentication tag did not verify.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrFormat means ciphertext, nonce or tag could not be decoded.
	ErrFormat = errors.New("malformed ciphertext")
	// ErrStore wraps any failure of the underlying persistence layer.
	ErrStore = errors.New("store failure")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// HTTPStatus maps an error from any layer to the status code the API
// responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that is safe to send to a client. Store and
// integrity failures are reduced to their category so driver details stay in
// the server log.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrStore):
		return ErrStore.Error()
	case errors.Is(err, ErrIntegrity):
		return ErrIntegrity.Error()
	case HTTPStatus(err) == http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}
