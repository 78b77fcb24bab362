package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/retell/internal/duration"
	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/scoring"
	"github.com/verte-zerg/retell/internal/storysource"
)

// Observer is notified after every transition, outside the controller lock.
type Observer func(Snapshot)

// Option configures a Controller.
type Option func(*Controller)

// WithNarrator sets the narration adapter. A nil narrator means narration is
// unsupported and the listening phase runs silently.
func WithNarrator(n Narrator) Option {
	return func(c *Controller) { c.narrator = n }
}

// WithCapture sets the transcript capture adapter.
func WithCapture(cp Capture) Option {
	return func(c *Controller) { c.capture = cp }
}

// WithCues sets the cue emitter.
func WithCues(e CueEmitter) Option {
	return func(c *Controller) { c.cues = e }
}

// WithRecordSink sets where completed runs are recorded.
func WithRecordSink(s RecordSink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithPicker replaces the random story picker.
func WithPicker(p Picker) Option {
	return func(c *Controller) { c.picker = p }
}

// WithClock replaces the wall clock used for phase timers.
func WithClock(clk Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithAdapterTimeout bounds each wait on a capture Start or Stop and the
// wait for adapter goroutines in Close.
func WithAdapterTimeout(d time.Duration) Option {
	return func(c *Controller) { c.adapterTimeout = d }
}

// WithScorer replaces the default scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *Controller) { c.scorer = s }
}

// Controller drives one practice run at a time through
// Listening, Prep, Speaking, Evaluating and Result. The phase timer is the
// only authority for advancing; narration and capture never hold it up.
type Controller struct {
	cfg      Config
	narrator Narrator
	capture  Capture
	cues     CueEmitter
	sink     RecordSink
	picker   Picker
	clock    Clock
	logger   *slog.Logger
	observer Observer
	scorer   *scoring.Scorer

	adapterTimeout time.Duration

	// cycle serialises Start and Cancel so a cancel finishes stopping capture
	// before the next run begins. It is never taken by timer callbacks.
	cycle  sync.Mutex
	mu     sync.Mutex
	sess   *Session
	nextID uint64
	seq    uint64

	// tasks tracks narration and capture goroutines so Close can wait for
	// them to settle.
	tasks sync.WaitGroup
}

// New builds a Controller.
func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		picker: storysource.NewRandomPicker(),
		clock:  realClock{},
		logger: slog.Default(),
		scorer: scoring.New(),

		adapterTimeout: adapterTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListenDuration returns the listening budget for a story.
func (c *Controller) ListenDuration(story model.Story) time.Duration {
	d := duration.Estimate(story.Text, c.cfg.WordsPerMinute, c.cfg.SpeechRate)
	if d < c.cfg.ListenFloor {
		return c.cfg.ListenFloor
	}
	return d
}

// Start picks a story from stories and begins a new run. A finished run in
// Result is discarded; a run still in progress yields ErrBusy.
func (c *Controller) Start(stories []model.Story) error {
	if len(stories) == 0 {
		return ErrNotReady
	}

	c.cycle.Lock()
	defer c.cycle.Unlock()
	c.mu.Lock()
	if c.sess != nil && c.sess.phase.InProgress() {
		c.mu.Unlock()
		return ErrBusy
	}
	story := c.picker.Pick(stories)
	c.nextID++
	sess := &Session{
		id:        c.nextID,
		story:     story,
		phase:     PhaseListening,
		startedAt: c.clock.Now(),
	}
	c.sess = sess
	listen := c.ListenDuration(story)
	log := c.logger.With("session", sess.id, "story", story.ID)
	log.Info("practice run started", "listen", listen)

	ctx, cancel := context.WithCancel(context.Background())
	sess.cancelNarration = cancel
	if c.narrator != nil {
		c.tasks.Add(1)
		go c.narrate(ctx, log, c.narrator, story.Text)
	} else {
		log.Info("narration unavailable, listening phase runs silently", "err", ErrNotSupported)
	}
	c.armTimer(sess, listen)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

func (c *Controller) narrate(ctx context.Context, log *slog.Logger, n Narrator, text string) {
	defer c.tasks.Done()
	err := n.Speak(ctx, text)
	switch {
	case ctx.Err() != nil:
		log.Debug("narration cancelled")
	case err != nil:
		log.Warn("narration failed", "err", &AdapterError{Adapter: "narrator", Op: "speak", Err: err})
	default:
		log.Debug("narration finished")
	}
}

// armTimer supersedes any live timer of sess. Callers hold c.mu.
func (c *Controller) armTimer(sess *Session, d time.Duration) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.timerSeq++
	id, seq := sess.id, sess.timerSeq
	sess.phaseStart = c.clock.Now()
	sess.deadline = sess.phaseStart.Add(d)
	sess.timer = c.clock.AfterFunc(d, func() {
		c.onTimer(id, seq)
	})
}

func (c *Controller) clearTimer(sess *Session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.timerSeq++
	sess.deadline = time.Time{}
}

func (c *Controller) onTimer(id, seq uint64) {
	c.mu.Lock()
	sess := c.sess
	if sess == nil || sess.id != id || sess.timerSeq != seq {
		c.mu.Unlock()
		return
	}
	sess.timer = nil

	switch sess.phase {
	case PhaseListening:
		c.enterPrep(sess)
	case PhasePrep:
		c.enterSpeaking(sess)
		return
	case PhaseSpeaking:
		c.evaluate(sess)
		return
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) enterPrep(sess *Session) {
	sess.cancelNarration()
	sess.phase = PhasePrep
	c.armTimer(sess, c.cfg.PrepDuration)
}

// enterSpeaking starts capture and arms the speaking timer. It is called with
// c.mu held and releases it; capture starts outside the lock.
func (c *Controller) enterSpeaking(sess *Session) {
	log := c.logger.With("session", sess.id)
	c.emit(CueBegin)
	sess.phase = PhaseSpeaking
	sess.deadline = time.Time{}
	sess.accepting.Store(true)
	c.mu.Unlock()

	handle := c.startCapture(log, sess)

	c.mu.Lock()
	if c.sess != sess || sess.phase != PhaseSpeaking {
		c.mu.Unlock()
		log.Debug("run ended while capture was starting")
		c.stopCapture(log, handle)
		return
	}
	sess.capture = handle
	c.armTimer(sess, c.cfg.SpeakDuration)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// startCapture waits at most adapterTimeout for the capture to start. A
// handle that arrives later is stopped and discarded.
func (c *Controller) startCapture(log *slog.Logger, sess *Session) CaptureHandle {
	if c.capture == nil {
		log.Info("capture unavailable, scoring an empty transcript", "err", ErrNotSupported)
		return nil
	}
	type started struct {
		handle CaptureHandle
		err    error
	}
	done := make(chan started, 1)
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		handle, err := c.capture.Start(context.Background(), sess.appendFinal)
		done <- started{handle: handle, err: err}
	}()

	timer := time.NewTimer(c.adapterTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		switch {
		case errors.Is(r.err, ErrNotSupported):
			log.Info("capture unavailable, scoring an empty transcript", "err", r.err)
		case r.err != nil:
			log.Warn("capture failed to start", "err", &AdapterError{Adapter: "capture", Op: "start", Err: r.err})
		default:
			return r.handle
		}
		return nil
	case <-timer.C:
		log.Warn("capture failed to start", "err", &AdapterError{Adapter: "capture", Op: "start", Err: ErrAdapterTimeout})
		c.tasks.Add(1)
		go func() {
			defer c.tasks.Done()
			if r := <-done; r.err == nil && r.handle != nil {
				c.stopCapture(log, r.handle)
			}
		}()
		return nil
	}
}

// evaluate finishes the speaking phase and scores the transcript. It is
// called with c.mu held and releases it; capture stops outside the lock.
func (c *Controller) evaluate(sess *Session) {
	c.emit(CueEnd)
	handle := sess.capture
	sess.capture = nil
	sess.deadline = time.Time{}
	sess.phase = PhaseEvaluating
	evaluating := c.snapshotLocked()
	log := c.logger.With("session", sess.id, "story", sess.story.ID)
	c.mu.Unlock()
	c.notify(evaluating)

	c.stopCapture(log, handle)
	sess.accepting.Store(false)
	res := c.scorer.Score(sess.story, sess.transcriptText())

	c.mu.Lock()
	if c.sess != sess || sess.phase != PhaseEvaluating {
		c.mu.Unlock()
		log.Info("run cancelled while scoring, result discarded")
		return
	}
	sess.result = &res
	sess.phase = PhaseResult
	done := c.snapshotLocked()
	rec := model.PracticeRecord{
		StoryID:         sess.story.ID,
		Score:           res.Percentage,
		Timestamp:       c.clock.Now(),
		Matched:         res.MatchedKeywords,
		Missing:         res.MissingKeywords,
		TotalKeywords:   res.TotalKeywords,
		TranscriptWords: res.TranscriptWords,
	}
	c.mu.Unlock()

	log.Info("practice run scored", "score", res.Percentage, "matched", len(res.MatchedKeywords), "total", res.TotalKeywords)
	c.notify(done)
	if c.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.sink.Record(ctx, rec); err != nil {
		log.Error("failed to record practice run", "err", err)
	}
}

// stopCapture stops handle, waiting at most adapterTimeout. Callers must not
// hold c.mu.
func (c *Controller) stopCapture(log *slog.Logger, handle CaptureHandle) {
	if handle == nil {
		return
	}
	done := make(chan error, 1)
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		done <- handle.Stop()
	}()

	timer := time.NewTimer(c.adapterTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			log.Warn("capture failed to stop", "err", &AdapterError{Adapter: "capture", Op: "stop", Err: err})
		}
	case <-timer.C:
		log.Warn("capture failed to stop", "err", &AdapterError{Adapter: "capture", Op: "stop", Err: ErrAdapterTimeout})
	}
}

func (c *Controller) emit(kind CueKind) {
	if c.cues != nil {
		c.cues.Emit(kind)
	}
}

// Cancel aborts the running cycle: narration is cancelled, capture stopped,
// the timer cleared and the controller returns to Idle before Cancel returns.
// A capture that does not stop within the adapter timeout is abandoned.
func (c *Controller) Cancel() error {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	c.mu.Lock()
	sess := c.sess
	if sess == nil || !sess.phase.InProgress() {
		c.mu.Unlock()
		return ErrNotRunning
	}
	sess.cancelNarration()
	sess.accepting.Store(false)
	handle := sess.capture
	sess.capture = nil
	c.clearTimer(sess)
	c.sess = nil
	log := c.logger.With("session", sess.id)
	log.Info("practice run cancelled", "phase", sess.phase.String())
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.stopCapture(log, handle)
	c.notify(snap)
	return nil
}

// Reset discards a finished run and returns to Idle.
func (c *Controller) Reset() error {
	c.mu.Lock()
	sess := c.sess
	if sess == nil {
		c.mu.Unlock()
		return nil
	}
	if sess.phase.InProgress() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sess = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLockedSeq(c.seq)
}

// Close cancels any running cycle and waits, up to the adapter timeout, for
// narration and capture goroutines to settle.
func (c *Controller) Close() {
	if err := c.Cancel(); err != nil && !errors.Is(err, ErrNotRunning) {
		c.logger.Warn("failed to cancel on close", "err", err)
	}
	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()
	timer := time.NewTimer(c.adapterTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn("adapter goroutines still running at close", "err", ErrAdapterTimeout, "timeout", c.adapterTimeout)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	c.seq++
	return c.snapshotLockedSeq(c.seq)
}

func (c *Controller) snapshotLockedSeq(seq uint64) Snapshot {
	snap := Snapshot{Seq: seq, Phase: PhaseIdle, Narrating: c.narrator != nil}
	sess := c.sess
	if sess == nil {
		return snap
	}
	snap.SessionID = sess.id
	snap.Phase = sess.phase
	snap.Story = sess.story
	snap.StartedAt = sess.startedAt
	snap.PhaseStart = sess.phaseStart
	snap.Deadline = sess.deadline
	snap.Transcript = sess.transcriptText()
	snap.Result = sess.result
	return snap
}

func (c *Controller) notify(snap Snapshot) {
	if c.observer != nil {
		c.observer(snap)
	}
}
