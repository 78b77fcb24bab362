package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/retell/internal/model"
)

func records(scores ...int) []model.PracticeRecord {
	out := make([]model.PracticeRecord, len(scores))
	for i, s := range scores {
		out[i] = model.PracticeRecord{StoryID: 1, Score: s}
	}
	return out
}

func TestSummarize(t *testing.T) {
	sum := Summarize(records(40, 60, 70, 90))
	if sum.Count != 4 || sum.Best != 90 || sum.Worst != 40 || sum.Last != 90 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if math.Abs(sum.Average-65) > 1e-9 {
		t.Fatalf("expected average 65, got %f", sum.Average)
	}
	if math.Abs(sum.Trend-30) > 1e-9 {
		t.Fatalf("expected trend 30, got %f", sum.Trend)
	}
	if empty := Summarize(nil); empty != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
	same := MovingAverage([]float64{1, 2}, 1)
	if same[0] != 1 || same[1] != 2 {
		t.Fatalf("window 1 should copy values, got %v", same)
	}
}

func TestSparklineFixedScale(t *testing.T) {
	if got := Sparkline([]float64{0, 100, 50, 150, -5}); got != " @+@ " {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No practice runs found.") {
		t.Fatalf("unexpected empty output %q", buf.String())
	}

	buf.Reset()
	if err := RenderSummary(&buf, records(50, 100)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Runs: 2", "Avg Score: 75.0%", "Best Score: 100%", "Trend: +50.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderKeywordTable(t *testing.T) {
	var buf bytes.Buffer
	aggs := []model.KeywordAggregate{{Keyword: "lazy", Matched: 1, Missed: 3}}
	if err := RenderKeywordTable(&buf, aggs); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[0] != "Most Missed Keywords (Windowed)" {
		t.Fatalf("unexpected title %q", lines[0])
	}
	if lines[2] != "lazy         25%       1      3" {
		t.Fatalf("unexpected row %q", lines[2])
	}
}
