package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/inference"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStarter hands out conversations that remember every message they received
type fakeStarter struct {
	mu            sync.Mutex
	conversations []*fakeConversation
	instructions  []string
	err           error
}

func (f *fakeStarter) StartChat(instruction string) inference.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv := &fakeConversation{err: f.err}
	f.conversations = append(f.conversations, conv)
	f.instructions = append(f.instructions, instruction)
	return conv
}

type fakeConversation struct {
	received []string
	err      error
}

func (c *fakeConversation) Send(_ context.Context, message string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.received = append(c.received, message)
	return "context: " + strings.Join(c.received, "|"), nil
}

func TestSessionLazyInitAndContext(t *testing.T) {
	starter := &fakeStarter{}
	s := NewSession("s1", starter, "be helpful", zap.NewNop())
	assert.Equal(t, Uninitialized, s.State())

	reply, err := s.Send(context.Background(), "  what is section 66C?  ")
	require.NoError(t, err)
	assert.Equal(t, Active, s.State())
	assert.Equal(t, "context: what is section 66C?", reply.Reply)
	assert.Equal(t, 1, reply.Turns)

	reply, err = s.Send(context.Background(), "and 66D?")
	require.NoError(t, err)
	assert.Equal(t, "context: what is section 66C?|and 66D?", reply.Reply)
	assert.Equal(t, 2, reply.Turns)

	require.Len(t, starter.conversations, 1)
	assert.Equal(t, []string{"be helpful"}, starter.instructions)
	assert.Len(t, s.Transcript(), 4)
}

func TestSessionResetForgetsPriorTurns(t *testing.T) {
	starter := &fakeStarter{}
	s := NewSession("s1", starter, "be helpful", zap.NewNop())

	_, err := s.Send(context.Background(), "my name is Asha")
	require.NoError(t, err)

	s.Reset()
	assert.Equal(t, Uninitialized, s.State())
	assert.Empty(t, s.Transcript())

	reply, err := s.Send(context.Background(), "what is my name?")
	require.NoError(t, err)

	require.Len(t, starter.conversations, 2)
	assert.Equal(t, []string{"what is my name?"}, starter.conversations[1].received)
	assert.NotContains(t, reply.Reply, "Asha")
	assert.Equal(t, 1, reply.Turns)
}

func TestSessionInit(t *testing.T) {
	starter := &fakeStarter{}
	s := NewSession("s1", starter, "x", zap.NewNop())

	require.NoError(t, s.Init())
	require.NoError(t, s.Init())
	assert.Equal(t, Active, s.State())
	assert.Len(t, starter.conversations, 1)
}

func TestSessionWithoutCredentialStaysUninitialized(t *testing.T) {
	s := NewSession("s1", nil, "x", zap.NewNop())

	_, err := s.Send(context.Background(), "hello")
	assert.Equal(t, apperror.KindConfig, apperror.KindOf(err))
	assert.Equal(t, Uninitialized, s.State())

	assert.Equal(t, apperror.KindConfig, apperror.KindOf(s.Init()))
	assert.Equal(t, Uninitialized, s.State())
}

func TestSessionRejectsBlankMessage(t *testing.T) {
	starter := &fakeStarter{}
	s := NewSession("s1", starter, "x", zap.NewNop())

	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, apperror.KindInput, apperror.KindOf(err))
	assert.Empty(t, starter.conversations)
}

func TestSessionTransportFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("connection reset by peer")}
	s := NewSession("s1", starter, "x", zap.NewNop())

	_, err := s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperror.KindTransport, apperror.KindOf(err))
	assert.NotContains(t, err.Error(), "connection reset")
	assert.Empty(t, s.Transcript())
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	starter := &fakeStarter{}
	r := NewRegistry(starter, "x", time.Hour, zap.NewNop())

	_, err := r.Get("alice").Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = r.Get("bob").Send(context.Background(), "two")
	require.NoError(t, err)

	assert.Same(t, r.Get("alice"), r.Get("alice"))
	assert.Same(t, r.Get(""), r.Get(DefaultSessionID))
	assert.Equal(t, 3, r.Len())
	assert.Len(t, starter.conversations, 2)

	r.Reset("alice")
	assert.Equal(t, Uninitialized, r.Get("alice").State())
	assert.Equal(t, Active, r.Get("bob").State())
}

func TestRegistrySweepEvictsIdle(t *testing.T) {
	current := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	r := NewRegistry(&fakeStarter{}, "x", 30*time.Minute, zap.NewNop())
	r.now = func() time.Time { return current }

	r.Get("old")
	current = current.Add(20 * time.Minute)
	r.Get("fresh")

	current = current.Add(15 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	current = current.Add(time.Hour)
	assert.Equal(t, 1, r.Sweep())
	assert.Zero(t, r.Len())
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	r := NewRegistry(&fakeStarter{}, "x", time.Minute, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("registry janitor did not stop")
	}
	assert.True(t, r.Configured())
}
