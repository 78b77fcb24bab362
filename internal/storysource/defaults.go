package storysource

import (
	_ "embed"

	"github.com/verte-zerg/retell/internal/model"
)

//go:embed stories.yaml
var defaultStories []byte

// DefaultData returns the bundled starter story file.
func DefaultData() []byte {
	return append([]byte(nil), defaultStories...)
}

// Defaults returns the bundled starter stories.
func Defaults() []model.Story {
	stories, err := Parse(defaultStories)
	if err != nil {
		panic("storysource: bundled stories are invalid: " + err.Error())
	}
	return stories
}
