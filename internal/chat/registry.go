package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"surakshanet/internal/inference"
)

// DefaultSessionID is used when a client does not name its session
const DefaultSessionID = "default"

// Registry maps client session ids to chat sessions
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	starter     inference.ChatStarter
	instruction string
	idleTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewRegistry creates a registry; idleTimeout <= 0 disables eviction
func NewRegistry(starter inference.ChatStarter, instruction string, idleTimeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		starter:     starter,
		instruction: instruction,
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// Configured reports whether sessions can reach the remote model
func (r *Registry) Configured() bool {
	return r.starter != nil
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}

// Get returns the session for id, creating an uninitialized one on first use
func (r *Registry) Get(id string) *Session {
	id = normalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = NewSession(id, r.starter, r.instruction, r.logger)
		s.now = r.now
		s.touch()
		r.sessions[id] = s
	}
	return s
}

// Reset returns the session for id to Uninitialized
func (r *Registry) Reset(id string) {
	r.Get(id).Reset()
}

// Len reports the number of tracked sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the timeout and returns how many were removed
func (r *Registry) Sweep() int {
	if r.idleTimeout <= 0 {
		return 0
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idleTimeout {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("Evicted idle chat sessions",
			zap.Int("removed", removed),
			zap.Int("remaining", len(r.sessions)))
	}
	return removed
}

// Run sweeps at interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if r.idleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}
