package storysource

import (
	"math/rand"
	"sync"
	"time"

	"github.com/verte-zerg/retell/internal/model"
)

// RandomPicker selects stories uniformly, or biased by per-story weights
// when weights are set.
type RandomPicker struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	weights map[int]float64
}

// NewRandomPicker returns a RandomPicker seeded with the current time.
func NewRandomPicker() *RandomPicker {
	return NewRandomPickerWithSeed(time.Now().UnixNano())
}

// NewRandomPickerWithSeed returns a RandomPicker with a fixed seed.
func NewRandomPickerWithSeed(seed int64) *RandomPicker {
	return &RandomPicker{rnd: rand.New(rand.NewSource(seed))}
}

// SetWeights biases later picks. Stories missing from weights get 1.
func (p *RandomPicker) SetWeights(weights map[int]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weights = weights
}

// Pick returns one story from a non-empty pool.
func (p *RandomPicker) Pick(stories []model.Story) model.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.weights) == 0 {
		return stories[p.rnd.Intn(len(stories))]
	}

	weights := make([]float64, len(stories))
	total := 0.0
	for i, s := range stories {
		w, ok := p.weights[s.ID]
		if !ok || w <= 0 {
			w = 1.0
		}
		weights[i] = w
		total += w
	}
	r := p.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return stories[i]
		}
	}
	return stories[len(stories)-1]
}

// WeakWeights turns average past scores into pick weights: a story averaging
// 0% weighs 1+factor, one averaging 100% weighs 1.
func WeakWeights(averages map[int]float64, factor float64) map[int]float64 {
	weights := make(map[int]float64, len(averages))
	for id, avg := range averages {
		if avg < 0 {
			avg = 0
		}
		if avg > 100 {
			avg = 100
		}
		weights[id] = 1.0 + (100-avg)/100*factor
	}
	return weights
}
