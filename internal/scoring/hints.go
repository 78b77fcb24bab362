package scoring

import "github.com/antzucaro/matchr"

// nearMisses picks, for each missing keyword, the transcript token with the
// highest Jaro-Winkler similarity. A token qualifies when its Double Metaphone
// codes overlap the keyword's and it clears PhoneticThreshold, or when it
// clears FuzzyThreshold on spelling alone.
func nearMisses(missing []keyword, tokens []string, p Policy) map[string]string {
	hints := map[string]string{}
	if len(missing) == 0 || len(tokens) == 0 {
		return hints
	}
	codes := make(map[string][2]string, len(tokens))
	for _, tok := range tokens {
		primary, secondary := matchr.DoubleMetaphone(tok)
		codes[tok] = [2]string{primary, secondary}
	}
	for _, kw := range missing {
		kp, ks := matchr.DoubleMetaphone(kw.stem)
		best := ""
		bestScore := 0.0
		for _, tok := range tokens {
			score := matchr.JaroWinkler(kw.stem, tok, false)
			threshold := p.FuzzyThreshold
			if codesOverlap([2]string{kp, ks}, codes[tok]) {
				threshold = p.PhoneticThreshold
			}
			if score >= threshold && score > bestScore {
				best = tok
				bestScore = score
			}
		}
		if best != "" {
			hints[kw.report] = best
		}
	}
	return hints
}

func codesOverlap(a, b [2]string) bool {
	for _, x := range a {
		if x == "" {
			continue
		}
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
