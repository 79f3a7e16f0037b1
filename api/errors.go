package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/hupe1980/vtable"
)

// Error kinds reported in response bodies.
const (
	KindInvalidType = "invalidType"
	KindValidation  = "validation"
	KindNotFound    = "notFound"
	KindConflict    = "conflict"
	KindRateLimited = "rateLimited"
	KindInternal    = "internal"
)

// ErrRateLimited is reported when the request rate exceeds the limiter.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// classify maps err to an HTTP status and error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, vtable.ErrInvalidType):
		return http.StatusUnprocessableEntity, KindInvalidType
	case errors.Is(err, vtable.ErrValidation):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, vtable.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, vtable.ErrConflict):
		return http.StatusConflict, KindConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, KindRateLimited
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, KindInternal
	default:
		return http.StatusInternalServerError, KindInternal
	}
}
