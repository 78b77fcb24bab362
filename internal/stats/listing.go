package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/scoring"
)

// RenderStories prints the story pool with the mean score of each story.
func RenderStories(w io.Writer, stories []model.Story, averages map[int]float64) error {
	if len(stories) == 0 {
		_, err := fmt.Fprintln(w, "No stories found.")
		return err
	}
	headers := []string{"ID", "Difficulty", "Words", "Keywords", "Avg Score", "Opening"}
	rows := make([][]string, 0, len(stories))
	for _, s := range stories {
		difficulty := s.Difficulty
		if difficulty == "" {
			difficulty = "-"
		}
		keywords := "auto"
		if s.HasKeywords() {
			keywords = fmt.Sprintf("%d", len(s.Keywords))
		}
		avg := "-"
		if v, ok := averages[s.ID]; ok {
			avg = fmt.Sprintf("%.0f%%", v)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			difficulty,
			fmt.Sprintf("%d", s.WordCount),
			keywords,
			avg,
			opening(s.Text, 6),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{0: true, 2: true, 3: true, 4: true})
}

func opening(text string, words int) string {
	fields := strings.Fields(text)
	if len(fields) <= words {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:words], " ") + "..."
}

// ScoreRow is one scored transcript.
type ScoreRow struct {
	Name   string
	Result scoring.Result
}

// RenderScores prints one row per scored transcript followed by the missing
// keywords of each.
func RenderScores(w io.Writer, rows []ScoreRow) error {
	headers := []string{"Transcript", "Score", "Matched", "Partial", "Words"}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.Name,
			fmt.Sprintf("%d%%", r.Result.Percentage),
			fmt.Sprintf("%d/%d", len(r.Result.MatchedKeywords), r.Result.TotalKeywords),
			fmt.Sprintf("%d", len(r.Result.PartialMatches)),
			fmt.Sprintf("%d", r.Result.TranscriptWords),
		})
	}
	if err := writeTable(w, headers, table, map[int]bool{1: true, 2: true, 3: true, 4: true}); err != nil {
		return err
	}
	for _, r := range rows {
		if len(r.Result.MissingKeywords) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s missing: %s\n", r.Name, strings.Join(r.Result.MissingKeywords, ", ")); err != nil {
			return err
		}
	}
	return nil
}
