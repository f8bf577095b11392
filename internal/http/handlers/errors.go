// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status semantics;
// domain codes name the ledger or registry rule that rejected the request.
// Clients are expected to branch on these codes, not on messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "invalid order status transition"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeNotRegistered     = "not_registered"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeTooManyOrders     = "too_many_orders"
	ErrCodeInvalidTable      = "invalid_table"
	ErrCodeEmptyQuery        = "empty_query"
)

// failErr maps a service error onto the standard envelope. Unknown errors
// become 500 and are logged by fail.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotRegistered):
		fail(c, http.StatusConflict, ErrCodeNotRegistered, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrAuth):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrTooManyOrders):
		fail(c, http.StatusTooManyRequests, ErrCodeTooManyOrders, err.Error())
	case errors.Is(err, services.ErrInvalidTable):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTable, err.Error())
	case errors.Is(err, services.ErrEmptyQuery):
		fail(c, http.StatusBadRequest, ErrCodeEmptyQuery, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
