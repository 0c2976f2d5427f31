// Package paper samples exam papers from a filtered question bank.
package paper

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/pavelanni/quizbank/internal/model"
)

// ErrInvalidSampleSize is returned when the requested paper size falls
// outside [1, len(bank)].
var ErrInvalidSampleSize = errors.New("sample size out of range")

// Generator draws random exam papers. The zero value is not usable; construct
// one with NewGenerator or NewSeededGenerator.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator with a non-deterministic source.
func NewGenerator() *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededGenerator returns a generator with a fixed seed, for reproducible
// papers in tests.
func NewSeededGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Generate draws n distinct records from the filtered bank, uniformly and
// without replacement. The sampling order becomes the paper order. Each call
// draws a fresh independent sample.
func (g *Generator) Generate(filtered []model.QuestionRecord, n int) (model.ExamPaper, error) {
	if n < 1 || n > len(filtered) {
		return nil, fmt.Errorf("%w: requested %d of %d available", ErrInvalidSampleSize, n, len(filtered))
	}
	pool := make([]model.QuestionRecord, len(filtered))
	copy(pool, filtered)
	g.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return model.ExamPaper(pool[:n]), nil
}
