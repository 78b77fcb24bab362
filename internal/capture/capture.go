// Package capture provides transcript sources for the speaking phase.
package capture

import (
	"context"
	"sync"

	"github.com/verte-zerg/retell/internal/session"
)

// Lines delivers submitted lines as final transcript chunks while a capture
// is running. Lines submitted between captures are discarded on Start.
type Lines struct {
	lines chan string

	mu     sync.Mutex
	active *linesHandle
}

// NewLines returns a Lines capture buffering up to size pending lines.
func NewLines(size int) *Lines {
	if size <= 0 {
		size = 16
	}
	return &Lines{lines: make(chan string, size)}
}

// Submit queues a line. It reports false when the buffer is full.
func (l *Lines) Submit(text string) bool {
	select {
	case l.lines <- text:
		return true
	default:
		return false
	}
}

// Start begins forwarding lines to onFinal until the handle is stopped or
// ctx is done.
func (l *Lines) Start(ctx context.Context, onFinal func(text string)) (session.CaptureHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		l.active.halt()
	}
	l.discard()

	h := &linesHandle{owner: l, stop: make(chan struct{}), done: make(chan struct{})}
	l.active = h
	go h.run(ctx, onFinal)
	return h, nil
}

func (l *Lines) discard() {
	for {
		select {
		case <-l.lines:
		default:
			return
		}
	}
}

type linesHandle struct {
	owner    *Lines
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (h *linesHandle) run(ctx context.Context, onFinal func(string)) {
	defer close(h.done)
	for {
		select {
		case text := <-h.owner.lines:
			onFinal(text)
		case <-ctx.Done():
			return
		case <-h.stop:
			// Flush lines submitted before the stop.
			for {
				select {
				case text := <-h.owner.lines:
					onFinal(text)
				default:
					return
				}
			}
		}
	}
}

func (h *linesHandle) halt() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Stop flushes pending lines and waits for the forwarder to exit.
func (h *linesHandle) Stop() error {
	h.halt()
	h.owner.mu.Lock()
	if h.owner.active == h {
		h.owner.active = nil
	}
	h.owner.mu.Unlock()
	return nil
}

// Unsupported is a capture for environments without any transcript source.
type Unsupported struct{}

// Start always returns session.ErrNotSupported.
func (Unsupported) Start(context.Context, func(string)) (session.CaptureHandle, error) {
	return nil, session.ErrNotSupported
}
