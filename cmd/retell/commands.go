package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/retell/internal/config"
	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/scoring"
	"github.com/verte-zerg/retell/internal/stats"
	"github.com/verte-zerg/retell/internal/statsui"
	"github.com/verte-zerg/retell/internal/store"
	"github.com/verte-zerg/retell/internal/storysource"
)

var (
	historyStory       int
	historySince       string
	historyLast        int
	historyCurveWindow int
	historyMissedTop   int
	historyTUI         bool

	storiesPath       string
	storiesDifficulty string
	storiesInit       bool

	scoreStory   int
	scoreStories string
	scoreWorkers int
	scoreSave    bool
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show practice history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyStory, "story", 0, "only runs of this story id")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&historyMissedTop, "missed-top", defaultMissedTop, "number of most missed keywords to show")
	cmd.Flags().BoolVar(&historyTUI, "tui", false, "browse history interactively")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if historyLast < 0 || historyCurveWindow < 0 || historyMissedTop < 0 {
		return fmt.Errorf("--last, --curve-window and --missed-top must be >= 0")
	}

	cfg := model.HistoryConfig{
		StoryID:     historyStory,
		Since:       sinceTime,
		Last:        historyLast,
		CurveWindow: historyCurveWindow,
		MissedTop:   historyMissedTop,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyTUI {
		load := func(cfg model.HistoryConfig) (stats.Report, error) {
			return stats.BuildReport(context.Background(), st, cfg)
		}
		program := tea.NewProgram(statsui.NewModel(load, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return renderHistory(cmd.OutOrStdout(), report)
}

func renderHistory(w io.Writer, report stats.Report) error {
	if err := stats.RenderSummary(w, report.Records); err != nil {
		return err
	}
	if len(report.Records) == 0 {
		return nil
	}
	if err := stats.RenderCurve(w, report.Curve, 0, 0); err != nil {
		return err
	}
	if err := stats.RenderRecordTable(w, report.Records); err != nil {
		return err
	}
	return stats.RenderKeywordTable(w, report.Missed)
}

func newStoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List the story pool",
		Args:  cobra.NoArgs,
		RunE:  runStoriesCmd,
	}
	cmd.Flags().StringVar(&storiesPath, "stories", "", "story file (YAML or JSON)")
	cmd.Flags().StringVar(&storiesDifficulty, "difficulty", "", "only stories of this difficulty")
	cmd.Flags().BoolVar(&storiesInit, "init", false, "write the starter stories to the story file if it does not exist")
	return cmd
}

func runStoriesCmd(cmd *cobra.Command, _ []string) error {
	path := storiesPath
	if path == "" {
		fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if fileCfg.Practice.Stories != nil {
			path = *fileCfg.Practice.Stories
		}
	}
	if storiesInit {
		target := path
		if target == "" {
			target = config.DefaultStoriesPath()
		}
		if err := writeIfMissing(target, storysource.DefaultData()); err != nil {
			return err
		}
		logErrf("Story file: %s\n", target)
	}

	stories, loadedFrom, err := loadStories(path)
	if err != nil {
		return err
	}
	if loadedFrom == "" {
		logErrln("No story file found; showing the bundled starter stories. Create one with: retell stories --init")
	}
	stories = storysource.Filter(stories, storiesDifficulty)

	averages := map[int]float64{}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logErrf("failed to open db: %v\n", err)
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		if averages, err = st.StoryAverages(context.Background()); err != nil {
			return fmt.Errorf("failed to load story scores: %w", err)
		}
	}
	return stats.RenderStories(cmd.OutOrStdout(), stories, averages)
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <transcript>...",
		Short: "Score transcript files against a story",
		Long:  "Score one or more transcript files against a story. Use - to read standard input.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScoreCmd,
	}
	cmd.Flags().IntVar(&scoreStory, "story", 0, "story id to score against")
	cmd.Flags().StringVar(&scoreStories, "stories", "", "story file (YAML or JSON)")
	cmd.Flags().IntVar(&scoreWorkers, "workers", defaultScoreWorkers, "transcripts scored concurrently")
	cmd.Flags().BoolVar(&scoreSave, "save", false, "record the scores in the practice history")
	_ = cmd.MarkFlagRequired("story")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadPracticeConfig(cmd.Root())
	if err != nil {
		return err
	}
	if scoreStories != "" {
		cfg.StoriesPath = scoreStories
	}
	stories, _, err := loadStories(cfg.StoriesPath)
	if err != nil {
		return err
	}
	story, ok := findStory(stories, scoreStory)
	if !ok {
		return fmt.Errorf("story %d not found", scoreStory)
	}

	scorer := scoring.New(scoring.WithPolicy(scoringPolicy(cfg)))
	rows, err := scoreFiles(context.Background(), scorer, story, args, scoreWorkers, os.Stdin)
	if err != nil {
		return err
	}
	if err := stats.RenderScores(cmd.OutOrStdout(), rows); err != nil {
		return err
	}
	if !scoreSave {
		return nil
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	now := time.Now()
	for _, row := range rows {
		rec := model.PracticeRecord{
			StoryID:         story.ID,
			Score:           row.Result.Percentage,
			Timestamp:       now,
			Matched:         row.Result.MatchedKeywords,
			Missing:         row.Result.MissingKeywords,
			TotalKeywords:   row.Result.TotalKeywords,
			TranscriptWords: row.Result.TranscriptWords,
		}
		if _, err := st.InsertRecord(context.Background(), rec); err != nil {
			return fmt.Errorf("failed to save score for %s: %w", row.Name, err)
		}
	}
	return nil
}

// scoreFiles reads and scores transcripts with at most workers in flight.
// Rows keep the order of paths.
func scoreFiles(ctx context.Context, scorer *scoring.Scorer, story model.Story, paths []string, workers int, stdin io.Reader) ([]stats.ScoreRow, error) {
	if workers <= 0 {
		workers = 1
	}
	stdinCount := 0
	for _, p := range paths {
		if p == "-" {
			stdinCount++
		}
	}
	if stdinCount > 1 {
		return nil, fmt.Errorf("standard input can only be scored once")
	}

	rows := make([]stats.ScoreRow, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := readTranscript(path, stdin)
			if err != nil {
				return err
			}
			rows[i] = stats.ScoreRow{
				Name:   displayName(path),
				Result: scorer.Score(story, text),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func readTranscript(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

func findStory(stories []model.Story, id int) (model.Story, bool) {
	for _, s := range stories {
		if s.ID == id {
			return s, true
		}
	}
	return model.Story{}, false
}
