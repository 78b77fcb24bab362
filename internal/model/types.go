// Package model defines shared data structures.
package model

import "time"

// Difficulty labels accepted in story files.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Story is a narratable text with optional explicit keywords.
type Story struct {
	ID         int      `yaml:"id" json:"id"`
	Text       string   `yaml:"text" json:"text"`
	Difficulty string   `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	WordCount  int      `yaml:"wordCount,omitempty" json:"wordCount,omitempty"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
}

// HasKeywords reports whether the story carries an explicit keyword list.
func (s Story) HasKeywords() bool {
	for _, kw := range s.Keywords {
		if kw != "" {
			return true
		}
	}
	return false
}

// Config defines practice settings.
type Config struct {
	StoriesPath        string
	Difficulty         string
	PrepSeconds        int
	SpeakSeconds       int
	ListenFloorSeconds int
	WordsPerMinute     float64
	SpeechRate         float64
	Narrator           string
	FocusWeak          bool
	WeakFactor         float64
	KeywordCap         int
	MinCommonSubstring int
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	StoryID     int
	Since       *time.Time
	Last        int
	CurveWindow int
	MissedTop   int
}

// PracticeRecord captures a completed retelling.
type PracticeRecord struct {
	ID              int64
	StoryID         int
	Score           int
	Timestamp       time.Time
	Matched         []string
	Missing         []string
	TotalKeywords   int
	TranscriptWords int
}

// KeywordAggregate aggregates keyword outcomes across records.
type KeywordAggregate struct {
	Keyword string
	Matched int
	Missed  int
}
