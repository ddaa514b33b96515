// Package apperror carries the error taxonomy shared by every analysis module.
package apperror

import (
	"context"
	"errors"
	"fmt"

	"surakshanet/internal/inference"
)

// Kind classifies a failed user action
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindInput
	KindTransport
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindInput:
		return "input"
	case KindTransport:
		return "transport"
	case KindContract:
		return "contract"
	default:
		return "unknown"
	}
}

// Error is a module failure with a message fit for display
type Error struct {
	Kind    Kind
	Module  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error
func New(kind Kind, module, message string, err error) *Error {
	return &Error{Kind: kind, Module: module, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// NotConfigured is the standing configuration error for a module
func NotConfigured(module, label string) *Error {
	return New(KindConfig, module,
		fmt.Sprintf("%s is unavailable: the Gemini API key is not configured (set GEMINI_API_KEY).", label),
		inference.ErrNotConfigured)
}

// Invalid wraps an input validation failure
func Invalid(module, label string, err error) *Error {
	return New(KindInput, module, fmt.Sprintf("%s: %v", label, err), err)
}

// FromTransport translates a remote call failure into a module message
func FromTransport(module, label string, err error) *Error {
	var reason string
	switch {
	case errors.Is(err, inference.ErrNotConfigured):
		return NotConfigured(module, label)
	case errors.Is(err, inference.ErrInvalidAPIKey):
		reason = "the configured Gemini API key is not valid. Check GEMINI_API_KEY"
	case errors.Is(err, inference.ErrPayloadTooLarge):
		reason = "the uploaded file is too large for the AI service. Try a smaller or shorter file"
	case errors.Is(err, inference.ErrEmptyResponse):
		reason = "the AI service returned an empty response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "the request was cancelled before the AI service answered"
	default:
		reason = "could not reach the AI service. Check your connection and try again"
	}
	return New(KindTransport, module, fmt.Sprintf("%s failed: %s.", label, reason), err)
}

// Contract wraps a response that failed parsing or validation
func Contract(module, label string, err error) *Error {
	return New(KindContract, module, fmt.Sprintf("%s failed: %v", label, err), err)
}
