// Package duration estimates how long a narration of a text takes.
package duration

import (
	"math"
	"strings"
	"time"
)

const (
	// DefaultWordsPerMinute is used when a non-positive rate is supplied.
	DefaultWordsPerMinute = 150.0

	sentencePause = 400 * time.Millisecond
	buffer        = 1500 * time.Millisecond
	perWordFloor  = 300 * time.Millisecond
	minimum       = 3 * time.Second
)

// Estimate returns the minimum narration budget for text read at
// wordsPerMinute and sped up by speechRate.
func Estimate(text string, wordsPerMinute, speechRate float64) time.Duration {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	if speechRate <= 0 {
		speechRate = 1.0
	}
	words := len(strings.Fields(text))
	sentences := countSentences(text)

	seconds := float64(words) * 60 / (wordsPerMinute * speechRate)
	total := time.Duration(math.Round(seconds*float64(time.Second))) + time.Duration(sentences)*sentencePause + buffer

	if floor := time.Duration(words) * perWordFloor; total < floor {
		total = floor
	}
	if total < minimum {
		total = minimum
	}
	return total
}

// countSentences counts runs of terminal punctuation; trailing text without a
// terminator counts as one more sentence.
func countSentences(text string) int {
	count := 0
	inTerminator := false
	pending := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inTerminator && pending {
				count++
				pending = false
			}
			inTerminator = true
		case ' ', '\t', '\n', '\r':
			inTerminator = false
		default:
			inTerminator = false
			pending = true
		}
	}
	if pending {
		count++
	}
	return count
}
