package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter creates a limiter that allows requestsPerMinute calls per minute
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 15
	}
	return &RateLimiter{
		tokens:     requestsPerMinute,
		maxTokens:  requestsPerMinute,
		refillRate: time.Minute / time.Duration(requestsPerMinute),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := rl.now()
		rl.refill(now)
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := rl.refillRate - now.Sub(rl.lastRefill)
		rl.mu.Unlock()

		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// caller holds mu
func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	tokensToAdd := int(elapsed / rl.refillRate)
	if tokensToAdd <= 0 {
		return
	}
	rl.tokens += tokensToAdd
	if rl.tokens >= rl.maxTokens {
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
		return
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(tokensToAdd) * rl.refillRate)
}

// RateLimitedClient wraps a client so every remote call takes a token first
type RateLimitedClient struct {
	client  Client
	limiter *RateLimiter
	logger  *zap.Logger
}

// NewRateLimitedClient wraps client with a limiter of requestsPerMinute
func NewRateLimitedClient(client Client, requestsPerMinute int, logger *zap.Logger) *RateLimitedClient {
	return &RateLimitedClient{
		client:  client,
		limiter: NewRateLimiter(requestsPerMinute),
		logger:  logger,
	}
}

func (c *RateLimitedClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("Rate limit wait cancelled", zap.String("module", req.Module), zap.Error(err))
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return c.client.Generate(ctx, req)
}

func (c *RateLimitedClient) StartChat(systemInstruction string) Conversation {
	return &limitedConversation{
		conv:    c.client.StartChat(systemInstruction),
		limiter: c.limiter,
	}
}

type limitedConversation struct {
	conv    Conversation
	limiter *RateLimiter
}

func (c *limitedConversation) Send(ctx context.Context, message string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return c.conv.Send(ctx, message)
}
