package scoring

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/verte-zerg/retell/internal/model"
)

func TestScoreEmptyStoryAndTranscript(t *testing.T) {
	s := New()
	res := s.ScoreAgainstExtracted("", "")
	if res.Percentage != 0 || res.TotalKeywords != 0 {
		t.Fatalf("expected zero score, got %+v", res)
	}
	res = s.ScoreAgainstKeywords("", "", nil)
	if res.Percentage != 0 || res.TotalKeywords != 0 {
		t.Fatalf("expected zero score for explicit variant, got %+v", res)
	}
}

func TestScoreExplicitKeywords(t *testing.T) {
	s := New()
	story := "The quick fox jumped over the lazy dog."
	res := s.ScoreAgainstKeywords(story, "a fox jumped over a sleeping dog", []string{"fox", "jumped", "lazy", "dog"})
	if res.TotalKeywords != 4 {
		t.Fatalf("expected 4 keywords, got %d", res.TotalKeywords)
	}
	if !reflect.DeepEqual(res.MatchedKeywords, []string{"dog", "fox", "jumped"}) {
		t.Fatalf("unexpected matched: %v", res.MatchedKeywords)
	}
	if !reflect.DeepEqual(res.MissingKeywords, []string{"lazy"}) {
		t.Fatalf("unexpected missing: %v", res.MissingKeywords)
	}
	if len(res.PartialMatches) != 0 {
		t.Fatalf("unexpected partial matches: %v", res.PartialMatches)
	}
	if res.AccuracyRate != 0.75 {
		t.Fatalf("unexpected accuracy rate %v", res.AccuracyRate)
	}
	if !res.Explicit {
		t.Fatalf("expected explicit variant")
	}
}

func TestScoreExplicitPercentage(t *testing.T) {
	s := New()
	story := "The fox jumped over the lazy dog"
	res := s.ScoreAgainstKeywords(story, "a fox jumped over a sleeping dog", []string{"fox", "jumped", "lazy", "dog"})
	// exact 0.75*0.7 + content 0.75*0.1 + length bonus 0.1 = 0.7, curved to 0.83.
	if res.Percentage != 83 {
		t.Fatalf("expected 83%%, got %d (%+v)", res.Percentage, res.Breakdown)
	}
}

func TestScoreExtractedPercentage(t *testing.T) {
	res := New().ScoreAgainstExtracted("fox fox fox", "fox")
	// exact 1*0.6 + content 1*0.2, no length bonus, curved to 0.96.
	if res.Percentage != 96 {
		t.Fatalf("expected 96%%, got %d (%+v)", res.Percentage, res.Breakdown)
	}
	if !reflect.DeepEqual(res.MatchedKeywords, []string{"fox"}) {
		t.Fatalf("unexpected matched: %v", res.MatchedKeywords)
	}
}

func TestPartialRulesDifferByVariant(t *testing.T) {
	s := New()
	story := "The dragon guarded the lighthouse."

	explicit := s.ScoreAgainstKeywords(story, "a wagon near the light", []string{"dragon", "lighthouse"})
	if !reflect.DeepEqual(explicit.PartialMatches, []string{"dragon", "lighthouse"}) {
		t.Fatalf("unexpected explicit partials: %v", explicit.PartialMatches)
	}

	extracted := s.ScoreAgainstExtracted(story, "a wagon near the light")
	if !reflect.DeepEqual(extracted.PartialMatches, []string{"lighthouse"}) {
		t.Fatalf("unexpected extracted partials: %v", extracted.PartialMatches)
	}
	if !contains(extracted.MissingKeywords, "dragon") {
		t.Fatalf("expected dragon missing without common-substring rule: %v", extracted.MissingKeywords)
	}
}

func TestExplicitKeywordsTrimDedupeAndReportOriginal(t *testing.T) {
	res := New().ScoreAgainstKeywords("Children played.", "the children played", []string{" Children ", "children", "", "Played"})
	if res.TotalKeywords != 2 {
		t.Fatalf("expected deduplicated universe of 2, got %d", res.TotalKeywords)
	}
	if !reflect.DeepEqual(res.MatchedKeywords, []string{"Children", "Played"}) {
		t.Fatalf("unexpected matched: %v", res.MatchedKeywords)
	}
}

func TestExplicitKeywordsWithPunctuationMatchExactly(t *testing.T) {
	res := New().ScoreAgainstKeywords("The dog's X-ray was clear.", "the dog's x-ray was clear", []string{"dog's", "X-ray"})
	if !reflect.DeepEqual(res.MatchedKeywords, []string{"X-ray", "dog's"}) {
		t.Fatalf("unexpected matched: %v", res.MatchedKeywords)
	}
	if len(res.PartialMatches) != 0 {
		t.Fatalf("expected exact matches only, got partial %v", res.PartialMatches)
	}
	if res.Breakdown.Exact != 1 {
		t.Fatalf("expected exact score 1, got %v", res.Breakdown.Exact)
	}
}

func TestKeywordStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dog's", "dog"},
		{"x-ray", "x ray"},
		{"lazy", "lazy"},
		{"over", "over"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := keywordStem(tt.in); got != tt.want {
			t.Errorf("keywordStem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreUsesStoryKeywordsWhenPresent(t *testing.T) {
	s := New()
	withKeywords := s.Score(model.Story{Text: "A red kite flew high.", Keywords: []string{"kite"}}, "kite")
	if !withKeywords.Explicit || withKeywords.TotalKeywords != 1 {
		t.Fatalf("expected explicit scoring, got %+v", withKeywords)
	}
	without := s.Score(model.Story{Text: "A red kite flew high."}, "kite")
	if without.Explicit || without.TotalKeywords == 0 {
		t.Fatalf("expected extracted scoring, got %+v", without)
	}
}

func TestNearMissHints(t *testing.T) {
	res := New().ScoreAgainstExtracted("The lantern glowed.", "the lanturn glowed")
	if !reflect.DeepEqual(res.MissingKeywords, []string{"lantern"}) {
		t.Fatalf("unexpected missing: %v", res.MissingKeywords)
	}
	if res.NearMisses["lantern"] != "lanturn" {
		t.Fatalf("expected near-miss hint, got %v", res.NearMisses)
	}
	if _, ok := res.NearMisses["glow"]; ok {
		t.Fatalf("matched keywords must not get hints: %v", res.NearMisses)
	}
}

func TestCurve(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.1, 0.1},
		{0.3, 0.32},
		{0.4, 0.44},
		{0.5, 0.57},
	}
	for _, tt := range tests {
		if got := p.Curve(tt.in); !approx(got, tt.want) {
			t.Errorf("Curve(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLengthBonus(t *testing.T) {
	p := DefaultPolicy()
	if got := p.LengthBonus(4, 10); got != 0 {
		t.Fatalf("expected no bonus below half length, got %v", got)
	}
	if got := p.LengthBonus(20, 10); !approx(got, 0.1) {
		t.Fatalf("expected capped bonus, got %v", got)
	}
	if got := p.LengthBonus(5, 0); got != 0 {
		t.Fatalf("expected no bonus for empty story, got %v", got)
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	if got := longestCommonSubstring("dragon", "wagon"); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
	if got := longestCommonSubstring("lazy", "sleep"); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := longestCommonSubstring("", "abc"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

var vocabulary = strings.Fields("fox dog lazy jumped river castle dragon knight wagon light " +
	"lighthouse the a of and sleeping children went stories quickly 42 ran forest king queen")

func randomText(rnd *rand.Rand, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = vocabulary[rnd.Intn(len(vocabulary))]
		if rnd.Intn(6) == 0 {
			idx := rnd.Intn(4)
			parts[i] += "!?,."[idx : idx+1]
		}
	}
	return strings.Join(parts, " ")
}

func TestScoreInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	s := New()
	for i := 0; i < 300; i++ {
		story := randomText(rnd, rnd.Intn(30))
		transcript := randomText(rnd, rnd.Intn(30))
		var kws []string
		if rnd.Intn(2) == 0 {
			kws = strings.Fields(randomText(rnd, rnd.Intn(8)))
		}
		for _, res := range []Result{
			s.ScoreAgainstExtracted(story, transcript),
			s.ScoreAgainstKeywords(story, transcript, kws),
		} {
			if res.Percentage < 0 || res.Percentage > 100 {
				t.Fatalf("percentage out of range: %d", res.Percentage)
			}
			if len(res.MatchedKeywords)+len(res.MissingKeywords) != res.TotalKeywords {
				t.Fatalf("classification does not cover universe: %+v", res)
			}
			for _, kw := range res.MatchedKeywords {
				if contains(res.MissingKeywords, kw) {
					t.Fatalf("keyword %q both matched and missing", kw)
				}
			}
			for _, kw := range res.PartialMatches {
				if !contains(res.MatchedKeywords, kw) {
					t.Fatalf("partial keyword %q not in matched", kw)
				}
			}
		}
	}
}

func TestMatchedCountMonotonicInTranscript(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	s := New()
	for i := 0; i < 200; i++ {
		story := randomText(rnd, 5+rnd.Intn(20))
		small := randomText(rnd, rnd.Intn(10))
		large := small + " " + randomText(rnd, rnd.Intn(10))
		kws := strings.Fields(randomText(rnd, 1+rnd.Intn(6)))

		a := s.ScoreAgainstExtracted(story, small)
		b := s.ScoreAgainstExtracted(story, large)
		if len(b.MatchedKeywords) < len(a.MatchedKeywords) {
			t.Fatalf("extracted matches decreased: %v -> %v", a.MatchedKeywords, b.MatchedKeywords)
		}
		a = s.ScoreAgainstKeywords(story, small, kws)
		b = s.ScoreAgainstKeywords(story, large, kws)
		if len(b.MatchedKeywords) < len(a.MatchedKeywords) {
			t.Fatalf("explicit matches decreased: %v -> %v", a.MatchedKeywords, b.MatchedKeywords)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
