package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/scoring"
	"github.com/verte-zerg/retell/internal/session"
)

type fakeController struct {
	snap     session.Snapshot
	starts   int
	cancels  int
	startErr error
}

func (c *fakeController) Start(stories []model.Story) error {
	if c.startErr != nil {
		return c.startErr
	}
	if len(stories) == 0 {
		return session.ErrNotReady
	}
	c.starts++
	c.set(session.PhaseListening)
	c.snap.SessionID++
	c.snap.Story = stories[0]
	return nil
}

func (c *fakeController) Cancel() error {
	if !c.snap.Phase.InProgress() {
		return session.ErrNotRunning
	}
	c.cancels++
	c.set(session.PhaseIdle)
	return nil
}

func (c *fakeController) Snapshot() session.Snapshot {
	return c.snap
}

func (c *fakeController) set(phase session.Phase) {
	c.snap.Seq++
	c.snap.Phase = phase
}

type fakeLines struct {
	lines []string
}

func (f *fakeLines) Submit(text string) bool {
	f.lines = append(f.lines, text)
	return true
}

type fakeHistory []int

func (h fakeHistory) ListRecords(context.Context, model.HistoryConfig) ([]model.PracticeRecord, error) {
	out := make([]model.PracticeRecord, len(h))
	for i, s := range h {
		out[i] = model.PracticeRecord{Score: s}
	}
	return out, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newTestModel(ctrl *fakeController, lines *fakeLines, history fakeHistory) *Model {
	stories := []model.Story{{ID: 7, Text: "The fox jumped over the lazy dog."}}
	opts := Options{
		Stories: func() []model.Story { return stories },
		History: history,
	}
	if lines != nil {
		opts.Lines = lines
	}
	return NewModel(ctrl, nil, opts)
}

func TestRenderFooterFormats(t *testing.T) {
	m := newTestModel(&fakeController{}, nil, fakeHistory{60, 80})
	out := m.renderFooter()
	if !containsAll(out, []string{"Stories 1", "Last 80%", "All-time 70.0% over 2 runs"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestStartAndCancelKeys(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, nil, nil)

	m.Update(key("n"))
	if ctrl.starts != 1 || m.snap.Phase != session.PhaseListening {
		t.Fatalf("expected run started, got %d starts in %v", ctrl.starts, m.snap.Phase)
	}
	m.Update(key("enter"))
	if ctrl.starts != 1 {
		t.Fatalf("enter during a run must not restart it")
	}
	m.Update(key("esc"))
	if ctrl.cancels != 1 || m.snap.Phase != session.PhaseIdle {
		t.Fatalf("expected run cancelled, got %d cancels in %v", ctrl.cancels, m.snap.Phase)
	}
	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestStartWithoutStories(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(ctrl, nil, Options{Stories: func() []model.Story { return nil }})
	m.Update(key("enter"))
	if !strings.Contains(m.notice, "No stories available") {
		t.Fatalf("expected notice, got %q", m.notice)
	}
}

func TestSpeakingSubmitsLines(t *testing.T) {
	ctrl := &fakeController{}
	lines := &fakeLines{}
	m := newTestModel(ctrl, lines, nil)
	m.Update(key("enter"))
	ctrl.set(session.PhaseSpeaking)
	m.Update(tickMsg{})
	if !m.input.Focused() {
		t.Fatalf("expected input focused while speaking")
	}

	m.input.SetValue("  the fox jumped  ")
	m.Update(key("enter"))
	m.Update(key("enter"))
	if len(lines.lines) != 1 || lines.lines[0] != "the fox jumped" {
		t.Fatalf("unexpected submitted lines: %q", lines.lines)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input cleared after submit")
	}
	m.Update(key("q"))
	if ctrl.snap.Phase != session.PhaseSpeaking {
		t.Fatalf("q must be typed while speaking, not quit")
	}

	ctrl.set(session.PhaseResult)
	m.Update(tickMsg{})
	if m.input.Focused() {
		t.Fatalf("expected input blurred after speaking")
	}
}

func TestApplyIgnoresStaleSnapshotsAndCountsScoresOnce(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, nil, nil)
	result := session.Snapshot{
		Seq:       5,
		SessionID: 1,
		Phase:     session.PhaseResult,
		Result:    &scoring.Result{Percentage: 72},
	}
	m.apply(result)
	m.apply(result)
	m.apply(session.Snapshot{Seq: 3, Phase: session.PhaseSpeaking})
	if m.snap.Phase != session.PhaseResult {
		t.Fatalf("stale snapshot replaced a newer one")
	}
	if len(m.scores) != 1 || m.scores[0] != 72 {
		t.Fatalf("expected score recorded once, got %v", m.scores)
	}
	view := m.View()
	if !strings.Contains(view, "Score 72%") {
		t.Fatalf("expected score in view:\n%s", view)
	}
}

func TestBellCues(t *testing.T) {
	var buf bytes.Buffer
	bell := Bell{W: &buf}
	bell.Emit(session.CueBegin)
	bell.Emit(session.CueEnd)
	if buf.String() != "\a\a\a" {
		t.Fatalf("unexpected bells %q", buf.String())
	}
}

func TestRenderNearMisses(t *testing.T) {
	got := renderNearMisses(map[string]string{"lantern": "lanturn", "keeper": "keepa"})
	want := `Close: "keepa" sounded like "keeper", "lanturn" sounded like "lantern"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if renderNearMisses(nil) != "" {
		t.Fatalf("expected empty hints")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
