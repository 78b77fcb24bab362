package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/scoring"
)

// Session is the state of one practice run. It is created by Start, owned by
// the Controller and discarded once the next run starts or the run is
// cancelled.
type Session struct {
	id        uint64
	story     model.Story
	phase     Phase
	startedAt time.Time
	// phaseStart and deadline bound the current timed phase.
	phaseStart time.Time
	deadline   time.Time

	timer    Timer
	timerSeq uint64

	cancelNarration context.CancelFunc
	capture         CaptureHandle

	// accepting gates capture fragments; it is only true during Speaking.
	accepting  atomic.Bool
	mu         sync.Mutex
	transcript []string

	result *scoring.Result
}

func (s *Session) appendFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" || !s.accepting.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, text)
}

func (s *Session) transcriptText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.transcript, " ")
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	// Seq increases with every transition; observers may receive snapshots
	// out of order and should drop ones older than the last seen.
	Seq        uint64
	SessionID  uint64
	Phase      Phase
	Story      model.Story
	StartedAt  time.Time
	PhaseStart time.Time
	Deadline   time.Time
	Transcript string
	Result     *scoring.Result
	// Narrating is false when no narrator is configured.
	Narrating bool
}

// Remaining returns the time left in the current timed phase.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if s.Deadline.IsZero() {
		return 0
	}
	if d := s.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
