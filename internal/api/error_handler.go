package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/identity-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

type apiError struct {
	status int
	code   string
	msg    string
}

// knownErrors maps domain sentinels to their HTTP rendering. Order matters:
// the first match wins.
var knownErrors = []struct {
	target error
	apiError
}{
	{domain.ErrAccountNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "account not found"}},
	{domain.ErrAlreadyRegistered, apiError{http.StatusBadRequest, "ALREADY_REGISTERED", "email already registered"}},
	{domain.ErrAlreadyVerified, apiError{http.StatusBadRequest, "ALREADY_VERIFIED", "email already verified"}},
	{domain.ErrAlreadyApproved, apiError{http.StatusConflict, "ALREADY_APPROVED", "seller already approved"}},
	{domain.ErrInvalidCredentials, apiError{http.StatusBadRequest, "INVALID_CREDENTIALS", "invalid email or password"}},
	{domain.ErrAccountDeactivated, apiError{http.StatusForbidden, "ACCOUNT_DEACTIVATED", "account is deactivated"}},
	{domain.ErrEmailNotVerified, apiError{http.StatusForbidden, "EMAIL_NOT_VERIFIED", "email not verified"}},
	{domain.ErrSellerPendingApproval, apiError{http.StatusForbidden, "SELLER_PENDING_APPROVAL", "seller account is pending approval"}},
	{domain.ErrSellerNotApproved, apiError{http.StatusForbidden, "SELLER_NOT_APPROVED", "seller account not approved"}},
	{domain.ErrCodeMismatch, apiError{http.StatusBadRequest, "CODE_MISMATCH", "invalid otp"}},
	{domain.ErrExpired, apiError{http.StatusBadRequest, "EXPIRED", "otp has expired"}},
	{domain.ErrAlreadyConsumed, apiError{http.StatusBadRequest, "ALREADY_CONSUMED", "no active otp challenge"}},
	{domain.ErrTooManyRequests, apiError{http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many otp requests, try again later"}},
	{domain.ErrDeliveryFailed, apiError{http.StatusBadGateway, "DELIVERY_FAILED", "could not deliver email"}},
	{domain.ErrUnauthenticated, apiError{http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required"}},
	{domain.ErrAccessDenied, apiError{http.StatusForbidden, "ACCESS_DENIED", "access denied"}},
	{domain.ErrInvalidRole, apiError{http.StatusBadRequest, "INVALID_ROLE", "invalid role"}},
	{domain.ErrInvalidInput, apiError{http.StatusBadRequest, "INVALID_INPUT", "invalid input"}},
	{domain.ErrInvalidTransition, apiError{http.StatusConflict, "INVALID_TRANSITION", "invalid account state transition"}},
	{domain.ErrStorage, apiError{http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "service temporarily unavailable"}},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
//
// With exposeDetail the wrapped cause is added as "detail".
func NewHTTPErrorHandler(log zerolog.Logger, exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp, status := resolveError(err, log, c)
		if exposeDetail && resp.Detail == "" && resp.Error != err.Error() {
			resp.Detail = err.Error()
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (errorResponse, int) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpCode(he.Code)}, he.Code
	}

	for _, k := range knownErrors {
		if errors.Is(err, k.target) {
			if k.status >= http.StatusInternalServerError {
				log.Error().
					Err(err).
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Msg("dependency failure")
			}
			msg := k.msg
			// Input errors carry the offending field in the wrapped text.
			if k.target == domain.ErrInvalidInput || k.target == domain.ErrInvalidRole {
				msg = err.Error()
			}
			return errorResponse{Error: msg, Code: k.code}, k.status
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return errorResponse{Error: "internal server error", Code: "INTERNAL"}, http.StatusInternalServerError
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "ACCESS_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_FAILED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL"
	}
	return "ERROR"
}
