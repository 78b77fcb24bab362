package scoring

import (
	"strings"

	"github.com/verte-zerg/retell/internal/textnorm"
)

// keywordStem folds an explicit keyword with the transcript character filter
// and stems each content word. "dog's" becomes "dog" and "X-ray" becomes
// "x ray". A keyword made only of stopwords keeps its folded words.
func keywordStem(keyword string) string {
	fields := strings.Fields(textnorm.Fold(keyword))
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if textnorm.IsStopword(f) {
			continue
		}
		if stem := textnorm.Stem(f); stem != "" && !textnorm.IsStopword(stem) {
			parts = append(parts, stem)
		}
	}
	if len(parts) == 0 {
		return strings.Join(fields, " ")
	}
	return strings.Join(parts, " ")
}

// exactMatch reports whether every word of stem is in the transcript set.
func exactMatch(stem string, userSet map[string]struct{}) bool {
	parts := strings.Fields(stem)
	if len(parts) == 0 {
		return false
	}
	for _, part := range parts {
		if _, ok := userSet[part]; !ok {
			return false
		}
	}
	return true
}

// partialMatch reports whether stem and some token contain one another or,
// when minCommon > 0, share a contiguous run of at least minCommon bytes.
func partialMatch(stem string, tokens []string, minCommon int) bool {
	if stem == "" {
		return false
	}
	for _, tok := range tokens {
		if strings.Contains(stem, tok) || strings.Contains(tok, stem) {
			return true
		}
		if minCommon > 0 && longestCommonSubstring(stem, tok) >= minCommon {
			return true
		}
	}
	return false
}

// longestCommonSubstring returns the length of the longest contiguous run
// shared by a and b.
func longestCommonSubstring(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return best
}
