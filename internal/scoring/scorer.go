package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/retell/internal/keywords"
	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/textnorm"
)

// Breakdown exposes the intermediate terms of a score.
type Breakdown struct {
	Exact       float64
	Partial     float64
	Content     float64
	LengthBonus float64
	Raw         float64
	Curved      float64
}

// Result is the outcome of scoring one transcript.
type Result struct {
	Percentage int
	// MatchedKeywords holds exact and partial matches; PartialMatches is the
	// partial subset.
	MatchedKeywords    []string
	MissingKeywords    []string
	PartialMatches     []string
	TotalKeywords      int
	ContentWordOverlap int
	StoryContentWords  int
	TranscriptWords    int
	AccuracyRate       float64
	Explicit           bool
	Breakdown          Breakdown
	// NearMisses maps a missing keyword to the transcript token that sounds
	// closest to it. Hints never change the score.
	NearMisses map[string]string
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithPolicy replaces the default policy.
func WithPolicy(p Policy) Option {
	return func(s *Scorer) {
		s.policy = p
	}
}

// Scorer is read-only after construction and safe for concurrent use.
type Scorer struct {
	policy Policy
}

// New returns a Scorer using DefaultPolicy unless overridden.
func New(opts ...Option) *Scorer {
	s := &Scorer{policy: DefaultPolicy()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Policy returns the active policy.
func (s *Scorer) Policy() Policy {
	return s.policy
}

type keyword struct {
	report string
	stem   string
}

// Score uses the story's explicit keywords when it has any and derives them
// from the text otherwise.
func (s *Scorer) Score(story model.Story, transcript string) Result {
	if story.HasKeywords() {
		return s.ScoreAgainstKeywords(story.Text, transcript, story.Keywords)
	}
	return s.ScoreAgainstExtracted(story.Text, transcript)
}

// ScoreAgainstExtracted scores transcript against keywords extracted from
// story. Partial matches require mutual substring containment.
func (s *Scorer) ScoreAgainstExtracted(story, transcript string) Result {
	extracted := keywords.Extract(story, s.policy.ExtractCap)
	universe := make([]keyword, 0, len(extracted))
	for _, tok := range extracted {
		universe = append(universe, keyword{report: tok, stem: tok})
	}
	return s.score(story, transcript, universe, false)
}

// ScoreAgainstKeywords scores transcript against an explicit keyword list.
// Keywords are trimmed and deduplicated case-insensitively; matching uses the
// stemmed lowercase form while results report the trimmed original.
func (s *Scorer) ScoreAgainstKeywords(story, transcript string, kws []string) Result {
	seen := make(map[string]struct{}, len(kws))
	universe := make([]keyword, 0, len(kws))
	for _, kw := range kws {
		trimmed := strings.TrimSpace(kw)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		universe = append(universe, keyword{report: trimmed, stem: keywordStem(lower)})
	}
	return s.score(story, transcript, universe, true)
}

func (s *Scorer) score(story, transcript string, universe []keyword, explicit bool) Result {
	p := s.policy
	storyTokens := textnorm.Normalize(story)
	userTokens := textnorm.Normalize(transcript)
	storySet := textnorm.ContentSet(storyTokens)
	userSet := textnorm.ContentSet(userTokens)
	userList := sortedKeys(userSet)

	res := Result{
		MatchedKeywords:   []string{},
		MissingKeywords:   []string{},
		PartialMatches:    []string{},
		TotalKeywords:     len(universe),
		StoryContentWords: len(storySet),
		TranscriptWords:   len(userTokens),
		Explicit:          explicit,
	}

	minCommon := 0
	if explicit {
		minCommon = p.MinCommonSubstring
	}
	exact := 0
	var missing []keyword
	for _, kw := range universe {
		if exactMatch(kw.stem, userSet) {
			exact++
			res.MatchedKeywords = append(res.MatchedKeywords, kw.report)
			continue
		}
		if partialMatch(kw.stem, userList, minCommon) {
			res.MatchedKeywords = append(res.MatchedKeywords, kw.report)
			res.PartialMatches = append(res.PartialMatches, kw.report)
			continue
		}
		res.MissingKeywords = append(res.MissingKeywords, kw.report)
		missing = append(missing, kw)
	}
	sort.Strings(res.MatchedKeywords)
	sort.Strings(res.MissingKeywords)
	sort.Strings(res.PartialMatches)

	for tok := range storySet {
		if _, ok := userSet[tok]; ok {
			res.ContentWordOverlap++
		}
	}

	b := Breakdown{}
	if n := len(universe); n > 0 {
		b.Exact = float64(exact) / float64(n)
		b.Partial = p.PartialCredit * float64(len(res.PartialMatches)) / float64(n)
		if explicit {
			res.AccuracyRate = float64(len(res.MatchedKeywords)) / float64(n)
		}
	}
	if len(storySet) > 0 {
		b.Content = float64(res.ContentWordOverlap) / float64(len(storySet))
	}
	b.LengthBonus = p.LengthBonus(len(userTokens), len(storyTokens))

	w := p.Generic
	if explicit {
		w = p.Explicit
	}
	b.Raw = b.Exact*w.Exact + b.Partial*w.Partial + b.Content*w.Content + b.LengthBonus
	b.Curved = p.Curve(b.Raw)
	res.Breakdown = b
	res.Percentage = toPercentage(b.Curved)
	res.NearMisses = nearMisses(missing, userList, p)
	return res
}

func toPercentage(score float64) int {
	pct := score * 100
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(math.Round(pct))
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
