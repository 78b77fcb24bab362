package session

import (
	"context"
	"time"

	"github.com/verte-zerg/retell/internal/model"
)

// Narrator reads text aloud. Speak blocks until narration ends or ctx is
// cancelled; cancelling is idempotent and safe before or after completion.
type Narrator interface {
	Speak(ctx context.Context, text string) error
}

// Capture turns the user's retelling into text. Start returns
// ErrNotSupported when no capture is available. onFinal receives committed
// transcript fragments and may be called from any goroutine.
type Capture interface {
	Start(ctx context.Context, onFinal func(text string)) (CaptureHandle, error)
}

// CaptureHandle stops an active capture. Stop may flush pending fragments
// through onFinal before it returns.
type CaptureHandle interface {
	Stop() error
}

// CueKind names a short signal around the speaking window.
type CueKind string

const (
	// CueBegin marks the start of the speaking window.
	CueBegin CueKind = "begin"
	// CueEnd marks the end of the speaking window.
	CueEnd CueKind = "end"
)

// CueEmitter plays a cue. It must not block.
type CueEmitter interface {
	Emit(kind CueKind)
}

// RecordSink receives one record per completed run.
type RecordSink interface {
	Record(ctx context.Context, rec model.PracticeRecord) error
}

// Picker chooses the story for a new run from a non-empty pool.
type Picker interface {
	Pick(stories []model.Story) model.Story
}

// Timer is a pending callback armed on a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules the phase timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
