package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/retell/internal/textnorm"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// styleRunes renders every rune of text with one style.
func styleRunes(text string, style lipgloss.Style) []styledRune {
	out := make([]styledRune, 0, len(text))
	for _, r := range text {
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

// highlightStory styles each story word by whether its stem was matched or
// missed in the retelling.
func highlightStory(text string, matched, missing []string) []styledRune {
	matchedStems := stemSet(matched)
	missingStems := stemSet(missing)

	out := make([]styledRune, 0, len(text))
	for i, word := range strings.Fields(text) {
		if i > 0 {
			out = append(out, styleRunes(" ", storyStyle)...)
		}
		style := storyStyle
		for _, stem := range textnorm.Normalize(word) {
			if _, ok := missingStems[stem]; ok {
				style = missingStyle
			}
			if _, ok := matchedStems[stem]; ok {
				style = matchedStyle
			}
		}
		out = append(out, styleRunes(word, style)...)
	}
	return out
}

func stemSet(words []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range words {
		for _, stem := range textnorm.Normalize(w) {
			set[stem] = struct{}{}
		}
	}
	return set
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits width, or mid-word
// when a single word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	var line []styledRune
	lineWidth, lastSpace := 0, -1

	flush := func(upto int) {
		out.WriteString(renderStyledRunes(line[:upto]))
		out.WriteRune('\n')
	}
	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if item.isSpace {
				flush(len(line))
				line = line[:0]
				lineWidth, lastSpace = 0, -1
				i++
				continue
			}
			if lastSpace >= 0 {
				flush(lastSpace)
				line = append([]styledRune{}, line[lastSpace+1:]...)
			} else {
				flush(len(line))
				line = line[:0]
			}
			lineWidth, lastSpace = 0, -1
			for j, r := range line {
				lineWidth += r.width
				if r.isSpace {
					lastSpace = j
				}
			}
			continue
		}
		i++
		if item.isSpace && len(line) == 0 {
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpace = len(line) - 1
		}
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

// wrapText wraps plain text with one style.
func wrapText(text string, style lipgloss.Style, width int) string {
	return wrapStyledRunes(styleRunes(text, style), width)
}
