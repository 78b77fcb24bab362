package statsui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/stats"
)

type fakeLoader struct {
	calls []model.HistoryConfig
	err   error
}

func (f *fakeLoader) load(cfg model.HistoryConfig) (stats.Report, error) {
	f.calls = append(f.calls, cfg)
	if f.err != nil {
		return stats.Report{}, f.err
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []model.PracticeRecord{
		{StoryID: 1, Score: 50, Timestamp: base, Matched: []string{"fox"}, Missing: []string{"dog"}, TotalKeywords: 2, TranscriptWords: 6},
		{StoryID: 1, Score: 100, Timestamp: base.Add(time.Hour), Matched: []string{"fox", "dog"}, TotalKeywords: 2, TranscriptWords: 9},
	}
	return stats.Report{
		Records: records,
		Curve:   stats.MovingAverage(stats.Scores(records), cfg.CurveWindow),
		Missed:  []model.KeywordAggregate{{Keyword: "dog", Matched: 1, Missed: 1}},
	}, nil
}

func newSizedModel(t *testing.T, f *fakeLoader, cfg model.HistoryConfig) *Model {
	t.Helper()
	m := NewModel(f.load, cfg)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOverviewShowsSummaryCards(t *testing.T) {
	f := &fakeLoader{}
	m := newSizedModel(t, f, model.HistoryConfig{CurveWindow: 5})
	view := m.View()
	for _, want := range []string{"Overview", "Runs", "75.0%", "100%", "window 5"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected overview to contain %q, got:\n%s", want, view)
		}
	}
	if lines := strings.Count(view, "\n") + 1; lines != 30 {
		t.Fatalf("expected 30 lines, got %d", lines)
	}
}

func TestTabsCycle(t *testing.T) {
	m := newSizedModel(t, &fakeLoader{}, model.HistoryConfig{CurveWindow: 5})
	m.Update(key("l"))
	if m.activeTab != tabRuns {
		t.Fatalf("expected runs tab, got %d", m.activeTab)
	}
	if view := m.View(); !strings.Contains(view, "1/2") || !strings.Contains(view, "dog") {
		t.Fatalf("expected runs table, got:\n%s", view)
	}
	m.Update(key("l"))
	if view := m.View(); !strings.Contains(view, "Hit rate") || !strings.Contains(view, "50%") {
		t.Fatalf("expected missed keyword table, got:\n%s", view)
	}
	m.Update(key("l"))
	if m.activeTab != tabOverview {
		t.Fatalf("expected wrap to overview, got %d", m.activeTab)
	}
	m.Update(key("h"))
	if m.activeTab != tabMissed {
		t.Fatalf("expected wrap back to missed, got %d", m.activeTab)
	}
}

func TestCurveWindowKeysReload(t *testing.T) {
	f := &fakeLoader{}
	m := newSizedModel(t, f, model.HistoryConfig{CurveWindow: 5})
	m.Update(key("="))
	m.Update(key("-"))
	m.Update(key("-"))
	want := []int{5, 10, 5, 1}
	if len(f.calls) != len(want) {
		t.Fatalf("expected %d loads, got %d", len(want), len(f.calls))
	}
	for i, w := range want {
		if f.calls[i].CurveWindow != w {
			t.Fatalf("load %d: expected window %d, got %d", i, w, f.calls[i].CurveWindow)
		}
	}
}

func TestFilterAppliesStoryAndLast(t *testing.T) {
	f := &fakeLoader{}
	m := newSizedModel(t, f, model.HistoryConfig{CurveWindow: 5})
	m.Update(key("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.Update(key("3"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(key("20"))
	m.Update(key("enter"))
	if m.filterMode {
		t.Fatalf("expected filter mode to close")
	}
	last := f.calls[len(f.calls)-1]
	if last.StoryID != 3 || last.Last != 20 {
		t.Fatalf("unexpected filter: %+v", last)
	}
}

func TestFilterRejectsInvalidInput(t *testing.T) {
	f := &fakeLoader{}
	m := newSizedModel(t, f, model.HistoryConfig{})
	m.Update(key("/"))
	m.Update(key("x"))
	m.Update(key("enter"))
	if !m.filterMode || m.filterError == "" {
		t.Fatalf("expected filter error, got mode=%v err=%q", m.filterMode, m.filterError)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected no reload, got %d loads", len(f.calls))
	}
	m.Update(key("esc"))
	if m.filterMode {
		t.Fatalf("expected esc to close the filter")
	}
}

func TestLoadErrorShownInFooter(t *testing.T) {
	f := &fakeLoader{err: errors.New("db locked")}
	m := newSizedModel(t, f, model.HistoryConfig{})
	if view := m.View(); !strings.Contains(view, "db locked") {
		t.Fatalf("expected error in view, got:\n%s", view)
	}
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct {
		in, next, prev int
	}{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{10, 15, 5},
	}
	for _, tc := range cases {
		if got := nextCurveWindow(tc.in); got != tc.next {
			t.Fatalf("next(%d): expected %d, got %d", tc.in, tc.next, got)
		}
		if got := prevCurveWindow(tc.in); got != tc.prev {
			t.Fatalf("prev(%d): expected %d, got %d", tc.in, tc.prev, got)
		}
	}
}
