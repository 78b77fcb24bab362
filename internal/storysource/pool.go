package storysource

import (
	"sync"

	"github.com/verte-zerg/retell/internal/model"
)

// Pool holds the current story set. Watch callbacks replace it while the
// practice loop reads from it.
type Pool struct {
	mu         sync.RWMutex
	all        []model.Story
	difficulty string
}

// NewPool returns a pool that serves stories of the given difficulty.
func NewPool(stories []model.Story, difficulty string) *Pool {
	return &Pool{all: stories, difficulty: difficulty}
}

// Set replaces the story set.
func (p *Pool) Set(stories []model.Story) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.all = stories
}

// Stories returns the stories matching the pool difficulty.
func (p *Pool) Stories() []model.Story {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Filter(p.all, p.difficulty)
}

// Len returns the number of stories served.
func (p *Pool) Len() int {
	return len(p.Stories())
}
