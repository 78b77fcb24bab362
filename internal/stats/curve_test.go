package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderCurve(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderCurve(&buf, []float64{0, 50, 100}, 40, 2); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	want := []string{
		"Score Curve",
		"100% |  █",
		"  0% | ██",
	}
	for i, line := range want {
		if lines[i] != line {
			t.Fatalf("line %d: expected %q, got %q", i, line, lines[i])
		}
	}
}

func TestCurveWidthFor(t *testing.T) {
	if got := CurveWidthFor(80); got != 80-curveAxisWidth {
		t.Fatalf("expected %d, got %d", 80-curveAxisWidth, got)
	}
	if got := CurveWidthFor(0); got != minCurveWidth {
		t.Fatalf("expected min width %d, got %d", minCurveWidth, got)
	}
}

func TestBucketAverages(t *testing.T) {
	got := bucket([]float64{10, 20, 30, 40}, 2)
	if len(got) != 2 || got[0] != 15 || got[1] != 35 {
		t.Fatalf("unexpected buckets: %v", got)
	}
}
