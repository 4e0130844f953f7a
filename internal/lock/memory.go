package lock

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// MemoryLocker is an in-process keyed mutex. It only serializes goroutines of a single instance.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[Key]*memSlot
}

type memSlot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[Key]*memSlot)}
}

func (l *MemoryLocker) Lock(ctx context.Context, _ *gorm.DB, keys ...Key) (Unlock, error) {
	keys = Sorted(keys)
	held := make([]Key, 0, len(keys))
	for _, k := range keys {
		if err := l.acquire(ctx, k); err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				l.release(held[i], true)
			}
			return nil, err
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				l.release(held[i], true)
			}
		})
	}, nil
}

func (l *MemoryLocker) acquire(ctx context.Context, k Key) error {
	l.mu.Lock()
	s := l.slots[k]
	if s == nil {
		s = &memSlot{ch: make(chan struct{}, 1)}
		l.slots[k] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(k, false)
		return ctx.Err()
	}
}

func (l *MemoryLocker) release(k Key, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[k]
	if s == nil {
		return
	}
	if held {
		<-s.ch
	}
	s.refs--
	if s.refs == 0 {
		delete(l.slots, k)
	}
}
