package database

import (
	"context"
	"fmt"

	"github.com/aliasgame/server/internal/game"
	"github.com/aliasgame/server/internal/models"
)

// QueryWords loads every candidate word for a draw and samples count of them
// uniformly. The exclusion list rides along as an array parameter so used
// words never leave the database filtered only client-side.
func QueryWords(ctx context.Context, language, difficulty string, exclude []string, count int) ([]models.GameWord, error) {
	q := `
	SELECT word, difficulty, category
	FROM words
	WHERE language = $1
	  AND ($2 = 'mixed' OR difficulty = $2)
	  AND NOT (word = ANY($3))
	`
	if exclude == nil {
		exclude = []string{}
	}
	rows, err := DB.Query(ctx, q, language, difficulty, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var pool []models.GameWord
	for rows.Next() {
		var w models.GameWord
		if err := rows.Scan(&w.Word, &w.Difficulty, &w.Category); err != nil {
			return nil, fmt.Errorf("failed to scan word row: %w", err)
		}
		pool = append(pool, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("word query failed: %w", err)
	}

	return game.SampleWords(pool, count)
}

func (Store) Query(ctx context.Context, language, difficulty string, exclude []string, count int) ([]models.GameWord, error) {
	return QueryWords(ctx, language, difficulty, exclude, count)
}
