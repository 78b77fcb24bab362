// Package narrate reads stories aloud through an external speech command.
package narrate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoEngine is returned by Detect when no speech command is installed.
var ErrNoEngine = errors.New("no speech engine found on PATH")

// Candidates are probed by Detect in order.
var Candidates = []string{"espeak-ng", "espeak", "say", "spd-say"}

// Exec narrates by running a speech command with the story text as its last
// argument. Cancelling the context kills the process.
type Exec struct {
	path string
	args []string
}

// New resolves command, which may carry extra arguments, on PATH. When the
// command is a known engine, wpm is passed as its speaking-rate flag.
func New(command string, wpm float64) (*Exec, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty narrator command")
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("failed to find narrator %q: %w", fields[0], err)
	}
	args := append([]string{}, fields[1:]...)
	args = append(args, rateArgs(filepath.Base(path), wpm)...)
	return &Exec{path: path, args: args}, nil
}

// Detect returns a narrator for the first installed candidate.
func Detect(wpm float64) (*Exec, error) {
	for _, name := range Candidates {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		return New(name, wpm)
	}
	return nil, ErrNoEngine
}

// Command returns the resolved command line without the text argument.
func (e *Exec) Command() []string {
	return append([]string{e.path}, e.args...)
}

// Speak blocks until the command exits or ctx is cancelled.
func (e *Exec) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, e.args...), text)
	cmd := exec.CommandContext(ctx, e.path, args...)
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(e.path), err, msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(e.path), err)
	}
	return nil
}

// spdDefaultWPM is the speed speech-dispatcher plays at rate 0.
const spdDefaultWPM = 175.0

// rateArgs returns the speaking-rate flag for a known engine. espeak and say
// take words per minute; spd-say takes a relative rate in [-100, 100].
func rateArgs(name string, wpm float64) []string {
	if wpm <= 0 {
		return nil
	}
	switch name {
	case "espeak", "espeak-ng":
		return []string{"-s", strconv.Itoa(int(wpm))}
	case "say":
		return []string{"-r", strconv.Itoa(int(wpm))}
	case "spd-say":
		rel := math.Round((wpm - spdDefaultWPM) / spdDefaultWPM * 100)
		rel = math.Max(-100, math.Min(100, rel))
		return []string{"-r", strconv.Itoa(int(rel))}
	default:
		return nil
	}
}
