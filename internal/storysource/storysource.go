// Package storysource loads, filters and picks practice stories.
package storysource

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/retell/internal/model"
)

type storyFile struct {
	Stories []model.Story `yaml:"stories"`
}

// Load reads a YAML or JSON story file. The file holds either a list of
// stories or a mapping with a "stories" list.
func Load(path string) ([]model.Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stories, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stories, nil
}

// Parse decodes and validates story data.
func Parse(data []byte) ([]model.Story, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode stories: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("story file is empty")
	}

	var stories []model.Story
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&stories); err != nil {
			return nil, fmt.Errorf("failed to decode stories: %w", err)
		}
	case yaml.MappingNode:
		var file storyFile
		if err := doc.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to decode stories: %w", err)
		}
		stories = file.Stories
	default:
		return nil, fmt.Errorf("story file must hold a list or a stories mapping")
	}

	if len(stories) == 0 {
		return nil, fmt.Errorf("story file is empty")
	}
	if err := validate(stories); err != nil {
		return nil, err
	}
	for i := range stories {
		if stories[i].WordCount == 0 {
			stories[i].WordCount = len(strings.Fields(stories[i].Text))
		}
	}
	return stories, nil
}

func validate(stories []model.Story) error {
	seen := make(map[int]struct{}, len(stories))
	for i, s := range stories {
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("story %d (index %d) has no text", s.ID, i)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("duplicate story id %d", s.ID)
		}
		seen[s.ID] = struct{}{}
		switch s.Difficulty {
		case "", model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		default:
			return fmt.Errorf("story %d has unknown difficulty %q", s.ID, s.Difficulty)
		}
	}
	return nil
}

// Filter keeps stories of the given difficulty; an empty difficulty keeps all.
func Filter(stories []model.Story, difficulty string) []model.Story {
	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	if difficulty == "" {
		return stories
	}
	out := make([]model.Story, 0, len(stories))
	for _, s := range stories {
		if s.Difficulty == difficulty {
			out = append(out, s)
		}
	}
	return out
}
