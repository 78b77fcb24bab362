package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/verte-zerg/retell/internal/model"
)

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].when.Before(c.timers[j].when) })
		var next *fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.when.After(target) {
				next = t
				break
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.when
		c.mu.Unlock()
		next.f()
	}
}

// Live counts armed timers that have neither fired nor been stopped.
func (c *fakeClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// blockingNarrator never finishes on its own.
type blockingNarrator struct {
	mu        sync.Mutex
	started   int
	cancelled chan struct{}
}

func newBlockingNarrator() *blockingNarrator {
	return &blockingNarrator{cancelled: make(chan struct{}, 8)}
}

func (n *blockingNarrator) Speak(ctx context.Context, _ string) error {
	n.mu.Lock()
	n.started++
	n.mu.Unlock()
	<-ctx.Done()
	n.cancelled <- struct{}{}
	return ctx.Err()
}

type failingNarrator struct{}

func (failingNarrator) Speak(context.Context, string) error {
	return errors.New("speech engine crashed")
}

type fakeCapture struct {
	mu      sync.Mutex
	onFinal func(string)
	starts  int
	stops   int
	flush   string
	err     error
}

type fakeHandle struct {
	c *fakeCapture
}

func (c *fakeCapture) Start(_ context.Context, onFinal func(string)) (CaptureHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.starts++
	c.onFinal = onFinal
	return fakeHandle{c: c}, nil
}

func (h fakeHandle) Stop() error {
	h.c.mu.Lock()
	h.c.stops++
	flush, onFinal := h.c.flush, h.c.onFinal
	h.c.mu.Unlock()
	if flush != "" {
		onFinal(flush)
	}
	return nil
}

func (c *fakeCapture) Say(text string) {
	c.mu.Lock()
	onFinal := c.onFinal
	c.mu.Unlock()
	if onFinal != nil {
		onFinal(text)
	}
}

type recordingCues struct {
	mu    sync.Mutex
	kinds []CueKind
}

func (r *recordingCues) Emit(kind CueKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

type memorySink struct {
	mu      sync.Mutex
	records []model.PracticeRecord
}

func (s *memorySink) Record(_ context.Context, rec model.PracticeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// sequencePicker hands out stories in order.
type sequencePicker struct {
	mu   sync.Mutex
	next int
}

func (p *sequencePicker) Pick(stories []model.Story) model.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := stories[p.next%len(stories)]
	p.next++
	return s
}

// stallingCapture can hang in Start or Stop until release is closed. It
// records how many phase timers were live when Start was called.
type stallingCapture struct {
	clock     *fakeClock
	hangStart bool
	hangStop  bool
	release   chan struct{}
	stopCalls chan struct{}
	stopped   chan struct{}

	mu          sync.Mutex
	liveAtStart []int
	onFinal     func(string)
}

func newStallingCapture(clock *fakeClock) *stallingCapture {
	return &stallingCapture{
		clock:   clock,
		release:   make(chan struct{}),
		stopCalls: make(chan struct{}, 8),
		stopped:   make(chan struct{}, 8),
	}
}

func (c *stallingCapture) Start(_ context.Context, onFinal func(string)) (CaptureHandle, error) {
	c.mu.Lock()
	c.liveAtStart = append(c.liveAtStart, c.clock.Live())
	c.onFinal = onFinal
	c.mu.Unlock()
	if c.hangStart {
		<-c.release
	}
	return stallingHandle{c: c}, nil
}

func (c *stallingCapture) Say(text string) {
	c.mu.Lock()
	onFinal := c.onFinal
	c.mu.Unlock()
	if onFinal != nil {
		onFinal(text)
	}
}

type stallingHandle struct {
	c *stallingCapture
}

func (h stallingHandle) Stop() error {
	h.c.stopCalls <- struct{}{}
	if h.c.hangStop {
		<-h.c.release
	}
	h.c.stopped <- struct{}{}
	return nil
}

// deafNarrator ignores cancellation until release is closed.
type deafNarrator struct {
	release chan struct{}
}

func (n deafNarrator) Speak(context.Context, string) error {
	<-n.release
	return nil
}
