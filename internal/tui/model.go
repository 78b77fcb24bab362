// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/session"
	"github.com/verte-zerg/retell/internal/stats"
)

const tickInterval = 100 * time.Millisecond

// Controller is the part of the session controller the UI drives.
type Controller interface {
	Start(stories []model.Story) error
	Cancel() error
	Snapshot() session.Snapshot
}

// History loads past practice records for the footer.
type History interface {
	ListRecords(ctx context.Context, cfg model.HistoryConfig) ([]model.PracticeRecord, error)
}

// LineSink receives retelling lines typed during the speaking phase.
type LineSink interface {
	Submit(text string) bool
}

// Options wires the model to its collaborators.
type Options struct {
	Stories func() []model.Story
	Lines   LineSink
	History History
}

// Feed buffers controller snapshots for the UI. Observe never blocks; a
// dropped snapshot is picked up by the next tick.
type Feed struct {
	ch chan session.Snapshot
}

// NewFeed returns an empty Feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan session.Snapshot, 16)}
}

// Observe is a session.Observer.
func (f *Feed) Observe(snap session.Snapshot) {
	select {
	case f.ch <- snap:
	default:
	}
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-f.ch)
	}
}

// Bell emits terminal bells as speaking cues.
type Bell struct {
	W io.Writer
}

// Emit implements session.CueEmitter.
func (b Bell) Emit(kind session.CueKind) {
	w := b.W
	if w == nil {
		w = os.Stderr
	}
	bells := "\a"
	if kind == session.CueEnd {
		bells = "\a\a"
	}
	if _, err := io.WriteString(w, bells); err != nil {
		// Best-effort cue.
		_ = err
	}
}

type snapshotMsg session.Snapshot

type tickMsg time.Time

// Model implements the Bubble Tea practice UI.
type Model struct {
	ctrl Controller
	feed *Feed
	opts Options

	snap   session.Snapshot
	notice string

	input textinput.Model
	bar   progress.Model

	width  int
	height int

	scores        []int
	scoredSession uint64
	now           func() time.Time
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	storyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	scoreStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a practice TUI model.
func NewModel(ctrl Controller, feed *Feed, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "type what you remember, enter to add it"
	input.CharLimit = 500
	input.Prompt = "> "

	m := &Model{
		ctrl:  ctrl,
		feed:  feed,
		opts:  opts,
		input: input,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		snap:  ctrl.Snapshot(),
		now:   time.Now,
	}
	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), textinput.Blink}
	if m.feed != nil {
		cmds = append(cmds, m.feed.wait())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.contentWidth()
		m.input.Width = m.contentWidth() - len(m.input.Prompt) - 1
		return m, nil
	case snapshotMsg:
		m.apply(session.Snapshot(msg))
		return m, m.feed.wait()
	case tickMsg:
		m.apply(m.ctrl.Snapshot())
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.snap.Phase.InProgress() {
			if err := m.ctrl.Cancel(); err != nil && !errors.Is(err, session.ErrNotRunning) {
				m.notice = fmt.Sprintf("cancel failed: %v", err)
			}
			m.apply(m.ctrl.Snapshot())
		}
		return m, nil
	}

	if m.snap.Phase == session.PhaseSpeaking {
		if msg.Type == tea.KeyEnter {
			m.submitLine()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter", "n":
		if !m.snap.Phase.InProgress() {
			m.start()
		}
	}
	return m, nil
}

func (m *Model) start() {
	var stories []model.Story
	if m.opts.Stories != nil {
		stories = m.opts.Stories()
	}
	err := m.ctrl.Start(stories)
	switch {
	case errors.Is(err, session.ErrNotReady):
		m.notice = "No stories available. Add some to your stories file."
	case errors.Is(err, session.ErrBusy):
	case err != nil:
		m.notice = fmt.Sprintf("start failed: %v", err)
	default:
		m.notice = ""
	}
	m.apply(m.ctrl.Snapshot())
}

func (m *Model) submitLine() {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" || m.opts.Lines == nil {
		return
	}
	if !m.opts.Lines.Submit(text) {
		m.notice = "input is arriving faster than it can be recorded"
	}
}

// apply moves the view to snap unless a newer snapshot was already shown.
func (m *Model) apply(snap session.Snapshot) {
	if snap.Seq < m.snap.Seq {
		return
	}
	prev := m.snap.Phase
	m.snap = snap
	if snap.Phase == session.PhaseSpeaking && prev != session.PhaseSpeaking {
		m.input.Reset()
		m.input.Focus()
	}
	if snap.Phase != session.PhaseSpeaking && prev == session.PhaseSpeaking {
		m.input.Blur()
	}
	if snap.Phase == session.PhaseResult && snap.Result != nil && snap.SessionID != m.scoredSession {
		m.scoredSession = snap.SessionID
		m.scores = append(m.scores, snap.Result.Percentage)
	}
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = 20
	}
	return w
}

// View implements tea.Model.
func (m *Model) View() string {
	body := m.renderBody()
	if m.width == 0 || m.height == 0 {
		return body + "\n" + m.renderFooter()
	}
	content := lipgloss.NewStyle().Width(m.contentWidth()).Render(body)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	placed := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return placed + "\n" + footerLine
}

func (m *Model) renderBody() string {
	width := m.contentWidth()
	snap := m.snap
	var parts []string
	switch snap.Phase {
	case session.PhaseIdle:
		parts = append(parts,
			titleStyle.Render("Retell"),
			wrapText("Listen to a short story, take a moment, then retell it in your own words.", storyStyle, width),
			hintStyle.Render("enter start  q quit"),
		)
	case session.PhaseListening:
		parts = append(parts, titleStyle.Render(fmt.Sprintf("Listen · story %d", snap.Story.ID)))
		if !snap.Narrating {
			parts = append(parts, wrapText(snap.Story.Text, storyStyle, width))
		} else {
			parts = append(parts, hintStyle.Render("The story is being read aloud."))
		}
		parts = append(parts, m.renderCountdown(), hintStyle.Render("esc cancel"))
	case session.PhasePrep:
		parts = append(parts,
			titleStyle.Render("Get ready"),
			hintStyle.Render("Recall the key points. Speaking starts after the bell."),
			m.renderCountdown(),
			hintStyle.Render("esc cancel"),
		)
	case session.PhaseSpeaking:
		parts = append(parts, titleStyle.Render("Retell the story"), m.renderCountdown())
		if snap.Transcript != "" {
			parts = append(parts, wrapText(snap.Transcript, hintStyle, width))
		}
		parts = append(parts, m.input.View(), hintStyle.Render("enter add line  esc cancel"))
	case session.PhaseEvaluating:
		parts = append(parts, titleStyle.Render("Scoring..."))
	case session.PhaseResult:
		parts = append(parts, m.renderResult(width)...)
	}
	if m.notice != "" {
		parts = append(parts, missingStyle.Render(m.notice))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderCountdown() string {
	total := m.snap.Deadline.Sub(m.snap.PhaseStart)
	remaining := m.snap.Remaining(m.now())
	label := fmt.Sprintf("%ds", int(remaining.Round(time.Second)/time.Second))
	fraction := 0.0
	if total > 0 {
		fraction = 1 - float64(remaining)/float64(total)
	}
	fraction = math.Max(0, math.Min(1, fraction))
	return m.bar.ViewAs(fraction) + " " + hintStyle.Render(label)
}

func (m *Model) renderResult(width int) []string {
	res := m.snap.Result
	if res == nil {
		return []string{titleStyle.Render("No result")}
	}
	parts := []string{
		titleStyle.Render(fmt.Sprintf("Story %d", m.snap.Story.ID)),
		scoreStyle.Render(fmt.Sprintf("Score %d%%", res.Percentage)),
		wrapStyledRunes(highlightStory(m.snap.Story.Text, res.MatchedKeywords, res.MissingKeywords), width),
	}
	if len(res.MatchedKeywords) > 0 {
		parts = append(parts, matchedStyle.Render("Matched: "+strings.Join(res.MatchedKeywords, ", ")))
	}
	if len(res.MissingKeywords) > 0 {
		parts = append(parts, missingStyle.Render("Missing: "+strings.Join(res.MissingKeywords, ", ")))
	}
	if hints := renderNearMisses(res.NearMisses); hints != "" {
		parts = append(parts, hintStyle.Render(hints))
	}
	transcript := m.snap.Transcript
	if transcript == "" {
		transcript = "(nothing captured)"
	}
	parts = append(parts,
		wrapText("You said: "+transcript, hintStyle, width),
		hintStyle.Render("enter next story  q quit"),
	)
	return parts
}

func renderNearMisses(hints map[string]string) string {
	if len(hints) == 0 {
		return ""
	}
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, fmt.Sprintf("%q sounded like %q", hints[k], k))
	}
	return "Close: " + strings.Join(items, ", ")
}

func (m *Model) loadFooterStats() {
	if m.opts.History == nil {
		return
	}
	records, err := m.opts.History.ListRecords(context.Background(), model.HistoryConfig{})
	if err != nil {
		m.notice = fmt.Sprintf("failed to load history: %v", err)
		return
	}
	for _, rec := range records {
		m.scores = append(m.scores, rec.Score)
	}
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.opts.Stories != nil {
		segments = append(segments, fmt.Sprintf("Stories %d", len(m.opts.Stories())))
	}
	if len(m.scores) > 0 {
		records := make([]model.PracticeRecord, len(m.scores))
		for i, s := range m.scores {
			records[i] = model.PracticeRecord{Score: s}
		}
		sum := stats.Summarize(records)
		segments = append(segments,
			fmt.Sprintf("Last %d%%", sum.Last),
			fmt.Sprintf("All-time %.1f%% over %d runs", sum.Average, sum.Count),
		)
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
