package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	defaultCurveHeight  = 8
	minCurveWidth       = 10
	curveAxisWidth      = 6
	terminalWidthBackup = 80
	colorCurve          = "\x1b[36m"
	colorReset          = "\x1b[0m"
)

// barLevels fills one row in eighths, from empty to full.
var barLevels = []rune(" ▁▂▃▄▅▆▇█")

// RenderCurve prints the score curve as a column chart on a fixed 0..100
// scale. A totalWidth of zero uses the terminal width.
func RenderCurve(w io.Writer, values []float64, totalWidth, height int) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultCurveHeight
	}
	width := CurveWidthFor(totalWidth)
	if totalWidth <= 0 {
		width = CurveWidthFor(terminalWidth())
	}
	cols := bucket(values, width)
	useColor := shouldUseColor(w)

	if _, err := fmt.Fprintln(w, "Score Curve"); err != nil {
		return err
	}
	steps := height * (len(barLevels) - 1)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(axisLabel(y, height))
		if useColor {
			row.WriteString(colorCurve)
		}
		floor := (height - 1 - y) * (len(barLevels) - 1)
		for _, v := range cols {
			filled := int(math.Round(math.Max(0, math.Min(100, v)) / 100 * float64(steps)))
			level := filled - floor
			if level < 0 {
				level = 0
			}
			if level >= len(barLevels) {
				level = len(barLevels) - 1
			}
			row.WriteRune(barLevels[level])
		}
		if useColor {
			row.WriteString(colorReset)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(row.String(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func axisLabel(y, height int) string {
	switch {
	case y == 0:
		return "100% |"
	case y == height-1:
		return "  0% |"
	case height > 2 && y == height/2:
		return " 50% |"
	default:
		return "     |"
	}
}

// CurveWidthFor returns how many columns fit next to the axis.
func CurveWidthFor(totalWidth int) int {
	width := totalWidth - curveAxisWidth
	if width < minCurveWidth {
		return minCurveWidth
	}
	return width
}

// bucket averages values into at most width columns.
func bucket(values []float64, width int) []float64 {
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
