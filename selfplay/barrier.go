package selfplay

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrBarrierTimeout is returned by Barrier.Wait when not every participant
// arrived within the barrier's timeout.
var ErrBarrierTimeout = errors.New("timed out waiting at barrier")

// Barrier is a reusable barrier for a fixed number of participants.
// Once a Wait has failed the barrier is broken and must not be reused.
type Barrier struct {
	n       int
	timeout time.Duration

	mx      sync.Mutex
	arrived int
	release chan struct{}
}

// NewBarrier returns a barrier for n participants. A timeout <= 0
// waits indefinitely.
func NewBarrier(n int, timeout time.Duration) *Barrier {
	return &Barrier{
		n:       n,
		timeout: timeout,
		release: make(chan struct{}),
	}
}

// Wait blocks until all n participants have called Wait, the context is
// cancelled, or the timeout expires.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mx.Lock()
	release := b.release
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.release = make(chan struct{})
		b.mx.Unlock()
		close(release)
		return nil
	}
	b.mx.Unlock()

	var expired <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrBarrierTimeout
	}
}
