package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"surakshanet/internal/inference"
)

// DefaultModel is used when no model name is configured
const DefaultModel = "gemini-2.0-flash"

// Client wraps the Gemini API client
type Client struct {
	client      *genai.Client
	logger      *zap.Logger
	modelName   string
	temperature float32
	timeout     time.Duration
}

// Config for Gemini client
type Config struct {
	APIKey      string
	ModelName   string
	Temperature float32
	Timeout     time.Duration // per call, 0 disables
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, inference.ErrNotConfigured
	}

	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.Duration("timeout", cfg.Timeout))

	return &Client{
		client:      client,
		logger:      logger,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// ModelName returns the configured model id
func (c *Client) ModelName() string {
	return c.modelName
}

func (c *Client) model(systemInstruction string, jsonOutput bool) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	if jsonOutput {
		model.ResponseMIMEType = "application/json"
	}
	model.SetTemperature(c.temperature)
	return model
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Generate performs exactly one JSON-mode request; there is no retry
func (c *Client) Generate(ctx context.Context, req inference.Request) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Media != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Media.MIMEType, Data: req.Media.Data})
	}

	start := time.Now()
	resp, err := c.model(req.SystemInstruction, true).GenerateContent(ctx, parts...)
	if err != nil {
		c.logger.Error("Gemini API error",
			zap.String("module", req.Module),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", Classify(err)
	}

	text, err := ResponseText(resp)
	if err != nil {
		c.logger.Error("Empty response from Gemini", zap.String("module", req.Module))
		return "", err
	}

	c.logger.Debug("Gemini response received",
		zap.String("module", req.Module),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// StartChat opens a conversation whose history is kept by the SDK session
func (c *Client) StartChat(systemInstruction string) inference.Conversation {
	return &conversation{
		session: c.model(systemInstruction, false).StartChat(),
		client:  c,
	}
}

type conversation struct {
	session *genai.ChatSession
	client  *Client
}

func (cv *conversation) Send(ctx context.Context, message string) (string, error) {
	ctx, cancel := cv.client.withTimeout(ctx)
	defer cancel()

	resp, err := cv.session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		cv.client.logger.Error("Gemini chat error",
			zap.Int("history_len", len(cv.session.History)),
			zap.Error(err))
		return "", Classify(err)
	}
	return ResponseText(resp)
}

// ResponseText joins the text parts of the first candidate
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", inference.ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", inference.ErrEmptyResponse
	}
	return text, nil
}

// Classify maps SDK errors onto the inference sentinels, keeping the cause
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusRequestEntityTooLarge {
		return fmt.Errorf("%w: %w", inference.ErrPayloadTooLarge, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid"), strings.Contains(msg, "api_key_invalid"):
		return fmt.Errorf("%w: %w", inference.ErrInvalidAPIKey, err)
	case strings.Contains(msg, "413"), strings.Contains(msg, "payload size"), strings.Contains(msg, "too large"):
		return fmt.Errorf("%w: %w", inference.ErrPayloadTooLarge, err)
	}
	return fmt.Errorf("gemini API error: %w", err)
}
