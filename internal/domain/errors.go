package domain

import (
	"fmt"
)

// AppError carries an HTTP status and a stable code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so that errors produced by WithError still
// satisfy errors.Is against the predefined sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithError returns a copy wrapping err. The code is unchanged, so errors.Is still matches.
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrTenantNotFound = &AppError{
		Code:       "TENANT_NOT_FOUND",
		Message:    "Tenant not found",
		StatusCode: 404,
	}

	ErrTenantInactive = &AppError{
		Code:       "TENANT_INACTIVE",
		Message:    "Tenant account is inactive",
		StatusCode: 403,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Webhook intake errors
	ErrInvalidSignature = &AppError{
		Code:       "INVALID_SIGNATURE",
		Message:    "Invalid webhook signature",
		StatusCode: 401,
	}

	ErrUnsupportedGateway = &AppError{
		Code:       "UNSUPPORTED_GATEWAY",
		Message:    "Unsupported payment gateway",
		StatusCode: 400,
	}

	ErrInvalidPayload = &AppError{
		Code:       "INVALID_PAYLOAD",
		Message:    "Webhook payload could not be processed",
		StatusCode: 400,
	}

	ErrGatewaySecretNotFound = &AppError{
		Code:       "GATEWAY_SECRET_NOT_FOUND",
		Message:    "No webhook secret configured for this gateway",
		StatusCode: 401,
	}

	// Pipeline errors
	ErrConversionNotFound = &AppError{
		Code:       "CONVERSION_NOT_FOUND",
		Message:    "Conversion not found",
		StatusCode: 404,
	}

	ErrMatchLogNotFound = &AppError{
		Code:       "MATCH_LOG_NOT_FOUND",
		Message:    "Match log not found",
		StatusCode: 404,
	}

	ErrClickNotFound = &AppError{
		Code:       "CLICK_NOT_FOUND",
		Message:    "Click not found",
		StatusCode: 404,
	}

	ErrWebhookRawNotFound = &AppError{
		Code:       "WEBHOOK_RAW_NOT_FOUND",
		Message:    "Webhook payload not found",
		StatusCode: 404,
	}
)
