package capi

import (
	"errors"
	"fmt"
)

var (
	// ErrDispatchFailed is returned once every attempt has failed.
	ErrDispatchFailed = errors.New("conversions api dispatch failed")
	ErrInvalidPayload = errors.New("invalid conversions api payload")
	ErrSecretNotFound = errors.New("capi credentials secret not found")
	ErrSecretEmpty    = errors.New("capi credentials secret is empty")
	ErrInvalidSecret  = errors.New("capi credentials secret is malformed")
	ErrAccessDenied   = errors.New("capi credentials access denied")
	ErrMissingPixelID = errors.New("no pixel id for conversion")
)

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       int
	TraceID    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("graph api: HTTP %d: %s", e.StatusCode, e.Message)
}
