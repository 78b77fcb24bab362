package narrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speak")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestSpeakPassesText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	t.Setenv("NARRATE_OUT", out)
	script := writeScript(t, `printf '%s|' "$@" > "$NARRATE_OUT"`)

	n, err := New(script+" --voice en", 150)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := n.Speak(context.Background(), "The fox jumped."); err != nil {
		t.Fatalf("speak: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := string(data); got != "--voice|en|The fox jumped.|" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestSpeakCancel(t *testing.T) {
	script := writeScript(t, "exec sleep 10")
	n, err := New(script, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err = n.Speak(ctx, "never finishes")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("speak did not stop promptly")
	}
}

func TestSpeakFailureIncludesOutput(t *testing.T) {
	script := writeScript(t, "echo 'no voice' >&2; exit 3")
	n, err := New(script, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = n.Speak(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "no voice") {
		t.Fatalf("expected failure with stderr, got %v", err)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New("   ", 150); err == nil {
		t.Fatalf("expected error for empty command")
	}
	if _, err := New("retell-missing-speech-engine", 150); err == nil {
		t.Fatalf("expected error for missing command")
	}
}

func TestRateArgs(t *testing.T) {
	tests := []struct {
		name string
		wpm  float64
		want []string
	}{
		{"espeak", 150, []string{"-s", "150"}},
		{"espeak-ng", 150, []string{"-s", "150"}},
		{"say", 150, []string{"-r", "150"}},
		{"spd-say", 175, []string{"-r", "0"}},
		{"spd-say", 150, []string{"-r", "-14"}},
		{"spd-say", 350, []string{"-r", "100"}},
		{"spd-say", 1000, []string{"-r", "100"}},
		{"festival", 150, nil},
		{"espeak", 0, nil},
	}
	for _, tt := range tests {
		if got := rateArgs(tt.name, tt.wpm); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s at %v wpm: expected %v, got %v", tt.name, tt.wpm, tt.want, got)
		}
	}
}

func TestDetectWithoutEngines(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := Detect(150); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
}
