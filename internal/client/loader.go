package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrSuperseded is returned by a Load that finished after a newer Load was
// started. Its result must be discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// Loader runs fetch for the latest input only. Starting a Load cancels the
// one in flight, and a result that arrives late is reported as
// ErrSuperseded instead of overwriting newer state.
type Loader[K, V any] struct {
	fetch func(ctx context.Context, key K) (V, error)

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewLoader[K, V any](fetch func(ctx context.Context, key K) (V, error)) *Loader[K, V] {
	return &Loader[K, V]{fetch: fetch}
}

func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	v, err := l.fetch(ctx, key)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		var zero V
		return zero, ErrSuperseded
	}
	l.cancel = nil
	return v, err
}

// Cancel aborts the in-flight Load, which then reports ErrSuperseded.
func (l *Loader[K, V]) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
}
