// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Scoring  ScoringConfig  `toml:"scoring"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Stories            *string  `toml:"stories"`
	Difficulty         *string  `toml:"difficulty"`
	PrepSeconds        *int     `toml:"prep-seconds"`
	SpeakSeconds       *int     `toml:"speak-seconds"`
	ListenFloorSeconds *int     `toml:"listen-floor-seconds"`
	WordsPerMinute     *float64 `toml:"wpm"`
	SpeechRate         *float64 `toml:"speech-rate"`
	Narrator           *string  `toml:"narrator"`
	FocusWeak          *bool    `toml:"focus-weak"`
	WeakFactor         *float64 `toml:"weak-factor"`
}

// ScoringConfig maps scorer tuning.
type ScoringConfig struct {
	KeywordCap         *int `toml:"keyword-cap"`
	MinCommonSubstring *int `toml:"min-common-substring"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
