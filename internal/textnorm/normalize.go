// Package textnorm tokenizes, stems and filters text for content matching.
package textnorm

import "strings"

// Normalize lowercases text, replaces everything outside [a-z0-9 ] with a
// separator, stems each token and drops stopwords and empty stems.
func Normalize(text string) []string {
	fields := strings.Fields(Fold(text))
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if IsStopword(field) {
			continue
		}
		stem := Stem(field)
		if stem == "" || IsStopword(stem) {
			continue
		}
		tokens = append(tokens, stem)
	}
	return tokens
}

// Fold lowercases text and replaces every byte outside [a-z0-9 ] with a space.
func Fold(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		ch := lower[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == ' ' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// ContentSet returns the distinct tokens of a normalized sequence.
func ContentSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// IsStopword reports whether token is a structural word excluded from matching.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

var stopwords = buildSet(
	"a", "an", "the", "and", "or", "but", "nor", "so", "yet", "if", "then", "than",
	"as", "at", "by", "for", "from", "in", "into", "of", "off", "on", "onto", "out",
	"over", "to", "up", "down", "with", "without", "about", "after", "before", "under",
	"again", "once", "there", "here", "when", "where", "why", "how", "what", "which",
	"who", "whom", "whose", "this", "that", "these", "those", "i", "me", "my", "mine",
	"myself", "we", "us", "our", "ours", "you", "your", "yours", "he", "him", "his",
	"himself", "she", "her", "hers", "herself", "it", "its", "itself", "they", "them",
	"their", "theirs", "themselves", "am", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "having", "do", "does", "did", "doing", "will",
	"would", "shall", "should", "can", "could", "may", "might", "must", "not", "no",
	"all", "any", "both", "each", "few", "more", "most", "other", "some", "such",
	"only", "own", "same", "too", "very", "just", "also", "s", "t", "d", "ll", "m",
	"re", "ve", "don", "didn", "doesn", "isn", "wasn", "weren", "won", "wouldn",
	"couldn", "shouldn", "haven", "hasn", "hadn", "aren", "while", "during", "through",
	"between", "because", "until", "against", "above", "below", "further", "one",
	"very", "really", "like", "um", "uh", "oh",
)

func buildSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
