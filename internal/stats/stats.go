// Package stats contains practice history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/retell/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates scores across practice records.
type Summary struct {
	Count   int
	Average float64
	Best    int
	Worst   int
	Last    int
	// Trend is the mean of the newer half minus the mean of the older half.
	Trend float64
}

// Summarize computes a Summary over records ordered oldest first.
func Summarize(records []model.PracticeRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	sum := Summary{Count: len(records), Best: records[0].Score, Worst: records[0].Score}
	total := 0
	for _, rec := range records {
		total += rec.Score
		if rec.Score > sum.Best {
			sum.Best = rec.Score
		}
		if rec.Score < sum.Worst {
			sum.Worst = rec.Score
		}
	}
	sum.Average = float64(total) / float64(len(records))
	sum.Last = records[len(records)-1].Score
	if len(records) >= 2 {
		half := len(records) / 2
		sum.Trend = meanScore(records[len(records)-half:]) - meanScore(records[:half])
	}
	return sum
}

func meanScore(records []model.PracticeRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, rec := range records {
		total += rec.Score
	}
	return float64(total) / float64(len(records))
}

// Scores returns the score series of records as floats.
func Scores(records []model.PracticeRecord) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i] = float64(rec.Score)
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline on a fixed 0..100 scale.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range values {
		pos := math.Max(0, math.Min(100, v)) / 100
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary of practice records.
func RenderSummary(w io.Writer, records []model.PracticeRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No practice runs found.")
		return err
	}
	sum := Summarize(records)
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", sum.Count),
		fmt.Sprintf("Avg Score: %.1f%%", sum.Average),
		fmt.Sprintf("Best Score: %d%%", sum.Best),
		fmt.Sprintf("Worst Score: %d%%", sum.Worst),
		fmt.Sprintf("Last Score: %d%%", sum.Last),
		fmt.Sprintf("Trend: %+.1f", sum.Trend),
		fmt.Sprintf("Scores: %s", Sparkline(Scores(records))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderRecordTable prints one row per practice record.
func RenderRecordTable(w io.Writer, records []model.PracticeRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Runs"); err != nil {
		return err
	}
	headers := []string{"When", "Story", "Score", "Keywords", "Words"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", rec.StoryID),
			fmt.Sprintf("%d%%", rec.Score),
			fmt.Sprintf("%d", rec.TotalKeywords),
			fmt.Sprintf("%d", rec.TranscriptWords),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

// RenderKeywordTable prints the most missed keywords.
func RenderKeywordTable(w io.Writer, aggs []model.KeywordAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No missed keywords.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Most Missed Keywords (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Keyword", "Hit Rate", "Matched", "Missed"}
	rows := make([][]string, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, []string{
			agg.Keyword,
			fmt.Sprintf("%.0f%%", hitRate(agg)*100),
			fmt.Sprintf("%d", agg.Matched),
			fmt.Sprintf("%d", agg.Missed),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true})
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
