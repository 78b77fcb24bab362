package session

import "time"

// Reference phase timings.
const (
	DefaultPrepDuration   = 5 * time.Second
	DefaultSpeakDuration  = 40 * time.Second
	DefaultListenFloor    = 30 * time.Second
	DefaultWordsPerMinute = 150.0
	DefaultSpeechRate     = 1.0

	recordTimeout = 5 * time.Second
	// adapterTimeout bounds how long a transition waits on capture Start or
	// Stop, and how long Close waits for adapter goroutines.
	adapterTimeout = 2 * time.Second
)

// Config sizes the phases of a run.
type Config struct {
	PrepDuration  time.Duration
	SpeakDuration time.Duration
	// ListenFloor is the shortest listening phase regardless of the estimate.
	ListenFloor    time.Duration
	WordsPerMinute float64
	SpeechRate     float64
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		PrepDuration:   DefaultPrepDuration,
		SpeakDuration:  DefaultSpeakDuration,
		ListenFloor:    DefaultListenFloor,
		WordsPerMinute: DefaultWordsPerMinute,
		SpeechRate:     DefaultSpeechRate,
	}
}
