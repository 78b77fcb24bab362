package textnorm

import (
	"reflect"
	"strings"
	"testing"
)

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"children", "child"},
		{"went", "go"},
		{"stories", "story"},
		{"carried", "carry"},
		{"riding", "rid"},
		{"jumped", "jump"},
		{"sleeping", "sleep"},
		{"quickly", "quick"},
		{"darkness", "dark"},
		{"movement", "move"},
		{"boxes", "box"},
		{"glasses", "glass"},
		{"glass", "glass"},
		{"dogs", "dog"},
		{"bus", "bus"},
		{"king", "king"},
		{"red", "red"},
		{"fox", "fox"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeFiltersAndStems(t *testing.T) {
	got := Normalize("The quick brown FOX jumped over the lazy dogs!")
	want := []string{"quick", "brown", "fox", "jump", "lazy", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %v", got)
	}
}

func TestNormalizeStripsPunctuationAndDigitsSurvive(t *testing.T) {
	got := Normalize("Room 42: it's—well—empty.")
	want := []string{"room", "42", "well", "empty"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %v", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(""); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
	if got := Normalize("the and of ... !!"); len(got) != 0 {
		t.Fatalf("expected stopwords only to vanish, got %v", got)
	}
}

func TestNormalizeDeterministicAndIdempotent(t *testing.T) {
	inputs := []string{
		"Once upon a time the children went riding through the dark forests.",
		"A fox jumped over a sleeping dog; the dogs barked loudly at the foxes.",
		"Blessings and happiness filled the kingdoms after the brave knights returned.",
		"Settings, feelings and meetings; the speeds decreased movements.",
		"jumpsedsedseds walkedlyings",
		"",
		"!!! ??? 123 abc",
	}
	for _, in := range inputs {
		first := Normalize(in)
		if !reflect.DeepEqual(first, Normalize(in)) {
			t.Fatalf("normalize not deterministic for %q", in)
		}
		again := Normalize(strings.Join(first, " "))
		if len(first) == 0 && len(again) == 0 {
			continue
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("normalize not idempotent for %q: %v then %v", in, first, again)
		}
	}
}

func TestStemIsIdempotent(t *testing.T) {
	vocab := []string{
		"settings", "blessings", "speeds", "feelings", "meetings", "movements",
		"kindnesses", "needed", "decreased", "butterflies", "stories", "children",
		"mice", "riding", "quickly", "glasses", "boxes", "bus", "jumpsedsedseds",
	}
	for word := range irregular {
		vocab = append(vocab, word)
	}
	for _, w := range vocab {
		once := Stem(w)
		if twice := Stem(once); twice != once {
			t.Errorf("Stem(%q) = %q but Stem(%q) = %q", w, once, once, twice)
		}
	}
}

func TestStemReducesStackedSuffixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"settings", "sett"},
		{"blessings", "bless"},
		{"feelings", "feel"},
		{"movements", "move"},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentSet(t *testing.T) {
	set := ContentSet([]string{"fox", "dog", "fox"})
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct tokens, got %d", len(set))
	}
}
