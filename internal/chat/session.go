package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/inference"
	"surakshanet/internal/models"
)

const label = "Sahayak CopBot"

// ErrEmptyMessage is returned for blank messages
var ErrEmptyMessage = errors.New("message must not be empty")

// State of a chat session
type State int

const (
	Uninitialized State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "uninitialized"
}

// Session holds one remote conversation handle, created lazily and dropped on Reset
type Session struct {
	mu          sync.Mutex
	id          string
	starter     inference.ChatStarter
	instruction string
	conv        inference.Conversation
	transcript  []models.ChatTurn
	lastUsed    atomic.Int64 // unix nanos, read without mu by the registry
	now         func() time.Time
	logger      *zap.Logger
}

// NewSession creates an uninitialized session; starter may be nil when no credential is configured
func NewSession(id string, starter inference.ChatStarter, instruction string, logger *zap.Logger) *Session {
	s := &Session{
		id:          id,
		starter:     starter,
		instruction: instruction,
		now:         time.Now,
		logger:      logger,
	}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return Uninitialized
	}
	return Active
}

// Init moves the session to Active without sending anything
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *Session) ensureLocked() error {
	if s.starter == nil {
		return apperror.NotConfigured(models.ModuleChat, label)
	}
	if s.conv == nil {
		s.conv = s.starter.StartChat(s.instruction)
		s.logger.Info("Chat session started", zap.String("session_id", s.id))
	}
	s.touch()
	return nil
}

// Send delivers one user message; prior turns stay in the remote context.
// Sends on one session are serialized.
func (s *Session) Send(ctx context.Context, message string) (*models.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.Invalid(models.ModuleChat, label, ErrEmptyMessage)
	}

	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return nil, err
	}

	sentAt := s.now()
	reply, err := s.conv.Send(ctx, message)
	if err != nil {
		s.logger.Error("Chat send failed", zap.String("session_id", s.id), zap.Error(err))
		return nil, apperror.FromTransport(models.ModuleChat, label, err)
	}

	repliedAt := s.now()
	s.transcript = append(s.transcript,
		models.ChatTurn{Role: "user", Text: message, At: sentAt},
		models.ChatTurn{Role: "model", Text: reply, At: repliedAt},
	)
	s.touch()

	return &models.ChatReply{
		SessionID: s.id,
		Reply:     reply,
		Turns:     len(s.transcript) / 2,
		RepliedAt: repliedAt,
	}, nil
}

// Reset drops the handle; the next send starts a fresh conversation
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv = nil
	s.transcript = nil
	s.logger.Info("Chat session reset", zap.String("session_id", s.id))
}

// Transcript returns the turns exchanged since the last reset
func (s *Session) Transcript() []models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatTurn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) idleSince(t time.Time) time.Duration {
	return t.Sub(time.Unix(0, s.lastUsed.Load()))
}
