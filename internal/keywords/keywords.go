// Package keywords ranks the salient tokens of a text when a story carries no
// explicit keyword list.
package keywords

import (
	"math"
	"sort"

	"github.com/verte-zerg/retell/internal/textnorm"
)

const (
	positionFloor   = 0.5
	lengthWeightCap = 2.0
	lengthScale     = 10.0
	weightEpsilon   = 0.1
)

type candidate struct {
	token  string
	weight float64
}

// Extract returns up to max normalized tokens of text ordered by weighted
// frequency, then token length, then lexicographically.
func Extract(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	tokens := textnorm.Normalize(text)
	if len(tokens) == 0 {
		return nil
	}

	weights := make(map[string]float64, len(tokens))
	for i, tok := range tokens {
		weights[tok] += positionWeight(i, len(tokens)) * lengthWeight(len(tok))
	}

	candidates := make([]candidate, 0, len(weights))
	for tok, w := range weights {
		candidates = append(candidates, candidate{token: tok, weight: w})
	}
	// Map iteration order is random; fix a base order before the tolerant sort.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].token < candidates[j].token
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if math.Abs(a.weight-b.weight) > weightEpsilon {
			return a.weight > b.weight
		}
		if len(a.token) != len(b.token) {
			return len(a.token) > len(b.token)
		}
		return a.token < b.token
	})

	if max > len(candidates) {
		max = len(candidates)
	}
	out := make([]string, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, candidates[i].token)
	}
	return out
}

// positionWeight falls linearly from 1.0 at the first token to the floor at the last.
func positionWeight(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - (1.0-positionFloor)*float64(index)/float64(total-1)
}

func lengthWeight(length int) float64 {
	w := 1.0 + float64(length)/lengthScale
	if w > lengthWeightCap {
		return lengthWeightCap
	}
	return w
}
