package nets

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds every wait on a unit when the config doesn't say otherwise
const DefaultTimeout = 5 * time.Second

// mailbox is the part every actor (neuron, layer and network) has in common: an inbox that its goroutine drains one
// message at a time and a channel that gets closed when it stops
type mailbox[M any] struct {
	name     string
	inbox    chan M
	stopped  chan struct{}
	stopOnce sync.Once
	timeout  time.Duration
}

func newMailbox[M any](name string, timeout time.Duration) mailbox[M] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return mailbox[M]{
		name:    name,
		inbox:   make(chan M),
		stopped: make(chan struct{}),
		timeout: timeout,
	}
}

// stop is idempotent
func (mb *mailbox[M]) stop() {
	mb.stopOnce.Do(func() { close(mb.stopped) })
}

func (mb *mailbox[M]) alive() error {
	select {
	case <-mb.stopped:
		return fmt.Errorf("%w: %s has been shut down", ErrHandle, mb.name)
	default:
		return nil
	}
}

// ask hands msg over to the actor and waits for the reply it will send through reply. Both steps are bounded by
// the given timeout. reply must be buffered so the actor never blocks on a caller that already gave up
func ask[M, R any](mb *mailbox[M], msg M, reply <-chan R, timeout time.Duration) (R, error) {
	var zero R
	if err := mb.alive(); err != nil {
		return zero, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case mb.inbox <- msg:
	case <-mb.stopped:
		return zero, fmt.Errorf("%w: %s has been shut down", ErrHandle, mb.name)
	case <-timer.C:
		return zero, fmt.Errorf("%w: %s didn't take the request within %s", ErrTimeout, mb.name, timeout)
	}
	select {
	case r := <-reply:
		return r, nil
	case <-mb.stopped:
		// The actor may have answered right before stopping
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, fmt.Errorf("%w: %s was shut down before replying", ErrHandle, mb.name)
		}
	case <-timer.C:
		return zero, fmt.Errorf("%w: %s didn't reply within %s", ErrTimeout, mb.name, timeout)
	}
}

// fanOut runs f for every index concurrently and only returns once all of them are done (the layer barrier). The
// first error wins, the rest are dropped
func fanOut(n int, f func(i int) error) error {
	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := f(i); err != nil {
				once.Do(func() { first = err })
			}
		}(i)
	}
	wg.Wait()
	return first
}
