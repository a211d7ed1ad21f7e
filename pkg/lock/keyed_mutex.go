package lock

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/noah-isme/academic-standing/pkg/errors"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker holding one mutex per key. Idle keys are
// dropped so memory tracks the number of contended records, not all records.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// NewKeyedMutex builds a KeyedMutex. A non-positive wait means callers block
// until their context is done.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot), wait: wait}
}

// Acquire blocks until key is free, the context ends, or the wait timeout passes.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (Release, error) {
	s := m.ref(key)

	if m.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key)
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrLockTimeout.Code, appErrors.ErrLockTimeout.Status, "timed out waiting for "+key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.unref(key)
		})
	}, nil
}

func (m *KeyedMutex) ref(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(m.slots, key)
	}
}

func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
