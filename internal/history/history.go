// Package history keeps small insertion-ordered logs in memory.
package history

import "sync"

// Log is an append-only list; when a limit is set the oldest entries are dropped
type Log[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
}

// New creates a log holding at most limit items; limit <= 0 means unbounded
func New[T any](limit int) *Log[T] {
	return &Log[T]{limit: limit}
}

// Append adds v as the newest entry
func (l *Log[T]) Append(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, v)
	if l.limit > 0 && len(l.items) > l.limit {
		l.items = append(l.items[:0:0], l.items[len(l.items)-l.limit:]...)
	}
}

// Items returns a copy, oldest first
func (l *Log[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Update applies fn to the newest entry matching match and reports whether one was found
func (l *Log[T]) Update(match func(T) bool, fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.items) - 1; i >= 0; i-- {
		if match(l.items[i]) {
			fn(&l.items[i])
			return true
		}
	}
	return false
}

func (l *Log[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *Log[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}
