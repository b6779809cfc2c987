// internal/game/corpus.go
package game

import (
	"context"
	"math/rand"
	"sync"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/models"
)

// WordCorpus supplies candidate words for a round. Query returns up to count
// words matching the language and difficulty filter (difficulty "mixed" means
// no filter), never returning a word present in exclude. Implementations must
// sample uniformly without replacement and fail with a BadRequest error when
// the candidate pool is smaller than count.
type WordCorpus interface {
	Query(ctx context.Context, language, difficulty string, exclude []string, count int) ([]models.GameWord, error)
}

// MemoryCorpus is an in-process WordCorpus, used by tests and local runs.
type MemoryCorpus struct {
	mu    sync.Mutex
	words []models.GameWord
	langs []string
	rng   *rand.Rand
}

// NewMemoryCorpus builds a corpus over the given words. Each word's language
// is taken from langs at the same index; a short langs slice defaults the
// remainder to "uk".
func NewMemoryCorpus(words []models.GameWord, langs []string) *MemoryCorpus {
	for len(langs) < len(words) {
		langs = append(langs, "uk")
	}
	return &MemoryCorpus{
		words: words,
		langs: langs,
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
}

func (c *MemoryCorpus) Query(_ context.Context, language, difficulty string, exclude []string, count int) ([]models.GameWord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		used[w] = true
	}

	var pool []models.GameWord
	for i, w := range c.words {
		if c.langs[i] != language || used[w.Word] {
			continue
		}
		if difficulty != models.DifficultyMixed && w.Difficulty != difficulty {
			continue
		}
		pool = append(pool, w)
	}

	if len(pool) < count {
		return nil, apperr.BadRequest("not enough words available: found %d but need %d", len(pool), count)
	}

	c.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count], nil
}

// SampleWords draws count words uniformly without replacement from pool.
// Shared by corpus implementations that over-fetch candidates.
func SampleWords(pool []models.GameWord, count int) ([]models.GameWord, error) {
	if len(pool) < count {
		return nil, apperr.BadRequest("not enough words available: found %d but need %d", len(pool), count)
	}
	out := append([]models.GameWord(nil), pool...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:count], nil
}
