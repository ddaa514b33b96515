package inference

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no API credential is available
	ErrNotConfigured = errors.New("inference API key is not configured")
	// ErrInvalidAPIKey is returned when the remote service rejects the credential
	ErrInvalidAPIKey = errors.New("inference API key not valid")
	// ErrPayloadTooLarge is returned when the remote service refuses the request size
	ErrPayloadTooLarge = errors.New("inference payload too large")
	// ErrEmptyResponse is returned when the remote service answers without text
	ErrEmptyResponse = errors.New("empty response from inference service")
)

// Media is an inline binary part sent alongside the prompt
type Media struct {
	MIMEType string
	Data     []byte
}

// Request is a single round trip to the remote model
type Request struct {
	Module            string
	SystemInstruction string
	Prompt            string
	Media             *Media
}

// Generator performs one JSON-mode completion
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Conversation is a stateful chat handle; prior turns are kept as context
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatStarter opens fresh conversations
type ChatStarter interface {
	StartChat(systemInstruction string) Conversation
}

// Client is implemented by providers that support both call styles
type Client interface {
	Generator
	ChatStarter
}
