package textnorm

import "strings"

type suffixRule struct {
	suffix      string
	replacement string
	minStem     int
	skip        []string
}

// Order matters: longer and more specific endings are checked before the
// generic trailing "s", and only the first matching rule is applied.
var suffixRules = []suffixRule{
	{suffix: "ies", replacement: "y", minStem: 2},
	{suffix: "ied", replacement: "y", minStem: 2},
	{suffix: "ness", minStem: 3},
	{suffix: "ment", minStem: 4},
	{suffix: "ing", minStem: 3},
	{suffix: "edly", minStem: 3},
	{suffix: "ed", minStem: 3},
	{suffix: "ly", minStem: 3},
	{suffix: "sses", replacement: "ss", minStem: 2},
	{suffix: "ches", replacement: "ch", minStem: 1},
	{suffix: "shes", replacement: "sh", minStem: 1},
	{suffix: "xes", replacement: "x", minStem: 1},
	{suffix: "zes", replacement: "z", minStem: 2},
	{suffix: "s", minStem: 3, skip: []string{"ss", "us", "is"}},
}

var irregular = map[string]string{
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"mice":     "mouse",
	"feet":     "foot",
	"teeth":    "tooth",
	"geese":    "goose",
	"people":   "person",
	"leaves":   "leaf",
	"wolves":   "wolf",
	"knives":   "knife",
	"lives":    "life",
	"wives":    "wife",
	"went":     "go",
	"gone":     "go",
	"ran":      "run",
	"ate":      "eat",
	"eaten":    "eat",
	"saw":      "see",
	"seen":     "see",
	"took":     "take",
	"taken":    "take",
	"came":     "come",
	"gave":     "give",
	"given":    "give",
	"found":    "find",
	"told":     "tell",
	"said":     "say",
	"thought":  "think",
	"knew":     "know",
	"known":    "know",
	"made":     "make",
	"got":      "get",
	"flew":     "fly",
	"flown":    "fly",
	"swam":     "swim",
	"began":    "begin",
	"begun":    "begin",
	"wrote":    "write",
	"written":  "write",
	"drove":    "drive",
	"driven":   "drive",
	"rode":     "ride",
	"ridden":   "ride",
	"broke":    "break",
	"broken":   "break",
	"fell":     "fall",
	"fallen":   "fall",
	"felt":     "feel",
	"kept":     "keep",
	"slept":    "sleep",
	"caught":   "catch",
	"brought":  "bring",
	"bought":   "buy",
	"taught":   "teach",
	"sat":      "sit",
	"stood":    "stand",
	"held":     "hold",
	"heard":    "hear",
	"lost":     "lose",
	"met":      "meet",
	"paid":     "pay",
	"sold":     "sell",
	"spoke":    "speak",
	"spoken":   "speak",
	"woke":     "wake",
	"wore":     "wear",
	"threw":    "throw",
	"thrown":   "throw",
	"grew":     "grow",
	"grown":    "grow",
	"drew":     "draw",
	"drawn":    "draw",
	"chose":    "choose",
	"chosen":   "choose",
	"hid":      "hide",
	"hidden":   "hide",
	"built":    "build",
	"sent":     "send",
	"spent":    "spend",
	"won":      "win",
	"sang":     "sing",
	"sung":     "sing",
	"swept":    "sweep",
	"dug":      "dig",
	"fought":   "fight",
}

// Stem reduces token to a heuristic base form. Irregular forms are looked up
// first; otherwise the first applicable suffix rule wins. Reductions repeat
// until none applies, so Stem(Stem(w)) == Stem(w). Every suffix rule
// shortens the token and no irregular base is itself irregular, so the loop
// ends.
func Stem(token string) string {
	for {
		next := stemOnce(token)
		if next == token {
			return token
		}
		token = next
	}
}

// stemOnce applies a single irregular lookup or suffix rule.
func stemOnce(token string) string {
	if token == "" {
		return ""
	}
	if base, ok := irregular[token]; ok {
		return base
	}
	for _, rule := range suffixRules {
		if !strings.HasSuffix(token, rule.suffix) {
			continue
		}
		if hasAnySuffix(token, rule.skip) {
			continue
		}
		stem := token[:len(token)-len(rule.suffix)]
		if len(stem) < rule.minStem {
			continue
		}
		return stem + rule.replacement
	}
	return token
}

func hasAnySuffix(token string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(token, s) {
			return true
		}
	}
	return false
}
