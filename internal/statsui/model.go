// Package statsui provides the Bubble Tea history browser.
package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/stats"
)

const (
	tabOverview = iota
	tabRuns
	tabMissed
)

const curveHeight = 10

// cellPadding is the horizontal padding the table styles add to each cell.
const cellPadding = 2

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Loader builds a report for the given filters.
type Loader func(cfg model.HistoryConfig) (stats.Report, error)

// Model implements the Bubble Tea history browser.
type Model struct {
	load Loader
	cfg  model.HistoryConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	runs      table.Model
	missed    table.Model

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	width  int
	height int
}

// NewModel constructs a history browser and loads the first report.
func NewModel(load Loader, cfg model.HistoryConfig) *Model {
	m := &Model{
		load:     load,
		cfg:      cfg,
		tabs:     []string{"Overview", "Runs", "Missed Keywords"},
		overview: viewport.New(0, 0),
		runs:     newTable(runColumns(0)),
		missed:   newTable(missedColumns(0)),
		filterInputs: []textinput.Model{
			newFilterInput("Story id: "),
			newFilterInput("Last: "),
		},
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabRuns:
			m.runs, cmd = m.runs.Update(msg)
		case tabMissed:
			m.missed, cmd = m.missed.Update(msg)
		default:
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X")))
	footerHeight = 1
	if m.filterMode {
		footerHeight = len(m.filterInputs) + 1
	} else if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.runs.SetColumns(runColumns(m.width))
	m.runs.SetWidth(m.width)
	m.runs.SetHeight(bodyHeight)
	m.missed.SetColumns(missedColumns(m.width))
	m.missed.SetWidth(m.width)
	m.missed.SetHeight(bodyHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
	m.overview.SetContent(m.renderOverview())
}

func (m *Model) refreshReport() {
	report, err := m.load(m.cfg)
	if err != nil {
		m.errMsg = fmt.Sprintf("Failed to load history: %v", err)
		return
	}
	m.errMsg = ""
	m.report = report
	m.runs.SetRows(runRows(report.Records))
	m.missed.SetRows(missedRows(report.Missed))
	m.runs.GotoTop()
	m.missed.GotoTop()
	m.overview.SetContent(m.renderOverview())
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	m.runs.Blur()
	m.missed.Blur()
	switch m.activeTab {
	case tabRuns:
		m.runs.Focus()
	case tabMissed:
		m.missed.Focus()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, name := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(name))
			continue
		}
		parts = append(parts, inactiveNavStyle.Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabRuns:
		if len(m.report.Records) == 0 {
			return "No practice runs yet."
		}
		return m.runs.View()
	case tabMissed:
		if len(m.report.Missed) == 0 {
			return "No missed keywords."
		}
		return m.missed.View()
	default:
		return m.overview.View()
	}
}

func (m *Model) renderOverview() string {
	records := m.report.Records
	if len(records) == 0 {
		return "No practice runs yet."
	}
	summary := stats.Summarize(records)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCard("Runs", strconv.Itoa(summary.Count)),
		renderCard("Average", fmt.Sprintf("%.1f%%", summary.Average)),
		renderCard("Best", fmt.Sprintf("%d%%", summary.Best)),
		renderCard("Last", fmt.Sprintf("%d%%", summary.Last)),
		renderCard("Trend", stats.Sparkline(stats.Scores(records))),
	)

	var buf bytes.Buffer
	buf.WriteString(cards)
	buf.WriteString("\n\n")
	buf.WriteString(headerStyle.Render(fmt.Sprintf("Score (moving average, window %d)", m.cfg.CurveWindow)))
	buf.WriteString("\n")
	if err := stats.RenderCurve(&buf, m.report.Curve, max(m.width, 20), curveHeight); err != nil {
		buf.WriteString(errorStyle.Render(err.Error()))
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderCard(title, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(title) + "\n" + cardValueStyle.Render(value))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		lines := make([]string, 0, len(m.filterInputs)+1)
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		hint := "enter apply | tab next field | esc cancel"
		if m.filterError != "" {
			hint = errorStyle.Render(m.filterError)
		}
		return strings.Join(append(lines, headerStyle.Render(hint)), "\n")
	}
	help := headerStyle.Render("←/→ tabs | ↑/↓ scroll | -/= curve window | / filter | q quit")
	if m.errMsg != "" {
		return errorStyle.Render(m.errMsg) + "\n" + help
	}
	return help
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.filterIndex = 0
	m.filterInputs[0].SetValue(optionalInt(m.cfg.StoryID))
	m.filterInputs[1].SetValue(optionalInt(m.cfg.Last))
	m.updateLayout()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterMode = false
		m.updateLayout()
		return m, nil
	case "tab", "down":
		return m, m.setFilterIndex((m.filterIndex + 1) % len(m.filterInputs))
	case "shift+tab", "up":
		return m, m.setFilterIndex((m.filterIndex - 1 + len(m.filterInputs)) % len(m.filterInputs))
	case "enter":
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.refreshReport()
		m.updateLayout()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == idx {
			cmd = m.filterInputs[i].Focus()
			continue
		}
		m.filterInputs[i].Blur()
	}
	return cmd
}

func (m *Model) applyFilter() error {
	storyID, err := parseOptionalInt(m.filterInputs[0].Value())
	if err != nil {
		return fmt.Errorf("story id: %w", err)
	}
	last, err := parseOptionalInt(m.filterInputs[1].Value())
	if err != nil {
		return fmt.Errorf("last: %w", err)
	}
	m.cfg.StoryID = storyID
	m.cfg.Last = last
	return nil
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 9
	return input
}

func newTable(cols []table.Column) table.Model {
	return table.New(
		table.WithColumns(cols),
		table.WithHeight(1),
		table.WithStyles(tableStyles()),
	)
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func runColumns(width int) []table.Column {
	missingWidth := max(12, width-16-8-8-10-10-6*cellPadding)
	return []table.Column{
		{Title: "When", Width: 16},
		{Title: "Story", Width: 8},
		{Title: "Score", Width: 8},
		{Title: "Keywords", Width: 10},
		{Title: "Words", Width: 10},
		{Title: "Missing", Width: missingWidth},
	}
}

// runRows lists runs newest first.
func runRows(records []model.PracticeRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		keywords := "-"
		if rec.TotalKeywords > 0 {
			keywords = fmt.Sprintf("%d/%d", len(rec.Matched), rec.TotalKeywords)
		}
		rows = append(rows, table.Row{
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(rec.StoryID),
			fmt.Sprintf("%d%%", rec.Score),
			keywords,
			strconv.Itoa(rec.TranscriptWords),
			strings.Join(rec.Missing, ", "),
		})
	}
	return rows
}

func missedColumns(width int) []table.Column {
	keywordWidth := max(12, width-10-10-10-4*cellPadding)
	return []table.Column{
		{Title: "Keyword", Width: keywordWidth},
		{Title: "Missed", Width: 10},
		{Title: "Matched", Width: 10},
		{Title: "Hit rate", Width: 10},
	}
}

func missedRows(aggs []model.KeywordAggregate) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, agg := range aggs {
		rate := 0.0
		if total := agg.Matched + agg.Missed; total > 0 {
			rate = float64(agg.Matched) / float64(total) * 100
		}
		rows = append(rows, table.Row{
			agg.Keyword,
			strconv.Itoa(agg.Missed),
			strconv.Itoa(agg.Matched),
			fmt.Sprintf("%.0f%%", rate),
		})
	}
	return rows
}

func optionalInt(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseOptionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("expected a non-negative number, got %q", s)
	}
	return n, nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if pad := width - lipgloss.Width(line); pad > 0 {
			lines[i] = line + strings.Repeat(" ", pad)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
