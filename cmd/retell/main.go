// Package main provides the CLI entrypoint for retell.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/retell/internal/capture"
	"github.com/verte-zerg/retell/internal/config"
	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/narrate"
	"github.com/verte-zerg/retell/internal/scoring"
	"github.com/verte-zerg/retell/internal/session"
	"github.com/verte-zerg/retell/internal/store"
	"github.com/verte-zerg/retell/internal/storysource"
	"github.com/verte-zerg/retell/internal/tui"
)

const (
	defaultPrepSeconds        = 5
	defaultSpeakSeconds       = 40
	defaultListenFloorSeconds = 30
	defaultWPM                = 150.0
	defaultSpeechRate         = 1.0
	defaultNarrator           = "auto"
	defaultWeakFactor         = 2.0
	defaultKeywordCap         = 20
	defaultMinCommon          = 3
	defaultCurveWindow        = 10
	defaultMissedTop          = 10
	defaultScoreWorkers       = 4
)

var (
	practiceStories     string
	practiceDifficulty  string
	practicePrep        int
	practiceSpeak       int
	practiceListenFloor int
	practiceWPM         float64
	practiceSpeechRate  float64
	practiceNarrator    string
	practiceFocusWeak   bool
	practiceWeakFactor  float64
	practiceKeywordCap  int
	practiceMinCommon   int
	practiceVerbose     bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "retell",
		Short:         "Listen, prepare, retell and get scored",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&practiceStories, "stories", "", "story file (YAML or JSON)")
	flags.StringVar(&practiceDifficulty, "difficulty", "", "only practice stories of this difficulty (easy, medium, hard)")
	flags.IntVar(&practicePrep, "prep", defaultPrepSeconds, "preparation seconds")
	flags.IntVar(&practiceSpeak, "speak", defaultSpeakSeconds, "speaking seconds")
	flags.IntVar(&practiceListenFloor, "listen-floor", defaultListenFloorSeconds, "minimum listening seconds")
	flags.Float64Var(&practiceWPM, "wpm", defaultWPM, "narration words per minute")
	flags.Float64Var(&practiceSpeechRate, "speech-rate", defaultSpeechRate, "narration speed multiplier")
	flags.StringVar(&practiceNarrator, "narrator", defaultNarrator, `speech command, "auto" to detect or "none" to read silently`)
	flags.BoolVar(&practiceFocusWeak, "focus-weak", false, "pick low-scoring stories more often")
	flags.Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for low-scoring stories")
	flags.IntVar(&practiceKeywordCap, "keyword-cap", defaultKeywordCap, "keywords extracted from stories without a keyword list")
	flags.IntVar(&practiceMinCommon, "min-common", defaultMinCommon, "shortest shared run that counts as a partial keyword match")
	flags.BoolVar(&practiceVerbose, "verbose", false, "debug logging to the log file")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStoriesCmd())
	rootCmd.AddCommand(newScoreCmd())

	return rootCmd
}

func loadPracticeConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	p, s := fileCfg.Practice, fileCfg.Scoring
	applyStringConfig(cmd, "stories", &practiceStories, p.Stories)
	applyStringConfig(cmd, "difficulty", &practiceDifficulty, p.Difficulty)
	applyIntConfig(cmd, "prep", &practicePrep, p.PrepSeconds)
	applyIntConfig(cmd, "speak", &practiceSpeak, p.SpeakSeconds)
	applyIntConfig(cmd, "listen-floor", &practiceListenFloor, p.ListenFloorSeconds)
	applyFloatConfig(cmd, "wpm", &practiceWPM, p.WordsPerMinute)
	applyFloatConfig(cmd, "speech-rate", &practiceSpeechRate, p.SpeechRate)
	applyStringConfig(cmd, "narrator", &practiceNarrator, p.Narrator)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, p.FocusWeak)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, p.WeakFactor)
	applyIntConfig(cmd, "keyword-cap", &practiceKeywordCap, s.KeywordCap)
	applyIntConfig(cmd, "min-common", &practiceMinCommon, s.MinCommonSubstring)

	cfg := model.Config{
		StoriesPath:        practiceStories,
		Difficulty:         strings.ToLower(strings.TrimSpace(practiceDifficulty)),
		PrepSeconds:        practicePrep,
		SpeakSeconds:       practiceSpeak,
		ListenFloorSeconds: practiceListenFloor,
		WordsPerMinute:     practiceWPM,
		SpeechRate:         practiceSpeechRate,
		Narrator:           practiceNarrator,
		FocusWeak:          practiceFocusWeak,
		WeakFactor:         practiceWeakFactor,
		KeywordCap:         practiceKeywordCap,
		MinCommonSubstring: practiceMinCommon,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadPracticeConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(config.DefaultLogPath(), practiceVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	stories, storiesPath, err := loadStories(cfg.StoriesPath)
	if err != nil {
		return err
	}
	pool := storysource.NewPool(stories, cfg.Difficulty)
	if pool.Len() == 0 {
		logErrf("no stories match difficulty %q\n", cfg.Difficulty)
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

	picker := storysource.NewRandomPicker()
	var sink session.RecordSink = st
	if cfg.FocusWeak {
		weighted := &weightedSink{store: st, picker: picker, factor: cfg.WeakFactor}
		if err := weighted.refresh(context.Background()); err != nil {
			logErrf("failed to load story scores: %v\n", err)
		}
		sink = weighted
	}

	lines := capture.NewLines(32)
	feed := tui.NewFeed()
	ctrl := session.New(sessionConfig(cfg),
		session.WithNarrator(resolveNarrator(cfg, logger)),
		session.WithCapture(lines),
		session.WithCues(tui.Bell{W: os.Stderr}),
		session.WithRecordSink(sink),
		session.WithPicker(picker),
		session.WithLogger(logger),
		session.WithObserver(feed.Observe),
		session.WithScorer(scoring.New(scoring.WithPolicy(scoringPolicy(cfg)))),
	)
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if storiesPath != "" {
		go func() {
			err := storysource.Watch(ctx, storiesPath, func(stories []model.Story) {
				pool.Set(stories)
				logger.Info("stories reloaded", "path", storiesPath, "count", len(stories))
			}, func(err error) {
				logger.Warn("story reload failed", "err", err)
			})
			if err != nil {
				logger.Warn("story watcher stopped", "err", err)
			}
		}()
	}

	m := tui.NewModel(ctrl, feed, tui.Options{
		Stories: pool.Stories,
		Lines:   lines,
		History: st,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// weightedSink records runs and re-weights the picker toward weak stories.
type weightedSink struct {
	store  *store.Store
	picker *storysource.RandomPicker
	factor float64
}

func (s *weightedSink) Record(ctx context.Context, rec model.PracticeRecord) error {
	if err := s.store.Record(ctx, rec); err != nil {
		return err
	}
	return s.refresh(ctx)
}

func (s *weightedSink) refresh(ctx context.Context) error {
	averages, err := s.store.StoryAverages(ctx)
	if err != nil {
		return err
	}
	s.picker.SetWeights(storysource.WeakWeights(averages, s.factor))
	return nil
}

func sessionConfig(cfg model.Config) session.Config {
	return session.Config{
		PrepDuration:   time.Duration(cfg.PrepSeconds) * time.Second,
		SpeakDuration:  time.Duration(cfg.SpeakSeconds) * time.Second,
		ListenFloor:    time.Duration(cfg.ListenFloorSeconds) * time.Second,
		WordsPerMinute: cfg.WordsPerMinute,
		SpeechRate:     cfg.SpeechRate,
	}
}

func scoringPolicy(cfg model.Config) scoring.Policy {
	p := scoring.DefaultPolicy()
	p.ExtractCap = cfg.KeywordCap
	p.MinCommonSubstring = cfg.MinCommonSubstring
	return p
}

// resolveNarrator returns nil when narration is disabled or unavailable so
// the controller runs the listening phase silently.
func resolveNarrator(cfg model.Config, logger *slog.Logger) session.Narrator {
	wpm := cfg.WordsPerMinute * cfg.SpeechRate
	switch strings.TrimSpace(cfg.Narrator) {
	case "none":
		return nil
	case "", "auto":
		n, err := narrate.Detect(wpm)
		if err != nil {
			logger.Info("narration disabled", "err", err)
			return nil
		}
		logger.Info("narrator detected", "command", strings.Join(n.Command(), " "))
		return n
	default:
		n, err := narrate.New(cfg.Narrator, wpm)
		if err != nil {
			logErrf("narration disabled: %v\n", err)
			logger.Warn("narration disabled", "err", err)
			return nil
		}
		return n
	}
}

// loadStories reads the story file. Without an explicit path a missing
// default file falls back to the bundled starter stories; the returned path
// is empty when nothing on disk should be watched.
func loadStories(path string) ([]model.Story, string, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultStoriesPath()
	}
	stories, err := storysource.Load(path)
	switch {
	case err == nil:
		return stories, path, nil
	case !explicit && errors.Is(err, os.ErrNotExist):
		return storysource.Defaults(), "", nil
	default:
		return nil, "", fmt.Errorf("failed to load stories: %w", err)
	}
}

func openLogger(path string, verbose bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	return logger, func() {
		if cerr := file.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeIfMissing(path, []byte(defaultConfigTemplate())); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeIfMissing creates path with data unless it already exists.
func writeIfMissing(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# retell configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# stories = %q    # Story file (YAML or JSON)
# difficulty = ""           # easy, medium or hard; empty practices all
# prep-seconds = %d          # Preparation window
# speak-seconds = %d        # Speaking window
# listen-floor-seconds = %d # Minimum listening window
# wpm = %.0f                # Narration words per minute
# speech-rate = %.1f        # Narration speed multiplier
# narrator = %q         # Speech command, "auto" or "none"
# focus-weak = false        # Pick low-scoring stories more often
# weak-factor = %.1f        # Weight factor for low-scoring stories

[scoring]
# keyword-cap = %d          # Keywords extracted from stories without a list
# min-common-substring = %d  # Shortest shared run for a partial match
`,
		config.DefaultStoriesPath(),
		defaultPrepSeconds,
		defaultSpeakSeconds,
		defaultListenFloorSeconds,
		defaultWPM,
		defaultSpeechRate,
		defaultNarrator,
		defaultWeakFactor,
		defaultKeywordCap,
		defaultMinCommon,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.PrepSeconds <= 0 {
		return fmt.Errorf("--prep must be > 0")
	}
	if cfg.SpeakSeconds <= 0 {
		return fmt.Errorf("--speak must be > 0")
	}
	if cfg.ListenFloorSeconds < 0 {
		return fmt.Errorf("--listen-floor must be >= 0")
	}
	if cfg.WordsPerMinute <= 0 {
		return fmt.Errorf("--wpm must be > 0")
	}
	if cfg.SpeechRate <= 0 {
		return fmt.Errorf("--speech-rate must be > 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.KeywordCap <= 0 {
		return fmt.Errorf("--keyword-cap must be > 0")
	}
	if cfg.MinCommonSubstring <= 0 {
		return fmt.Errorf("--min-common must be > 0")
	}
	switch cfg.Difficulty {
	case "", model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return fmt.Errorf("--difficulty must be easy, medium or hard")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
