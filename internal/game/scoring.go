// internal/game/scoring.go
package game

import (
	"sort"

	"github.com/aliasgame/server/internal/models"
)

const (
	perfectRoundBonus = 5
	fastRoundBonus    = 3
	fastRoundCutoff   = 30
)

// RoundScore is the post-hoc breakdown of a finished round. Base points match
// what the live engine applied; bonuses are analysis-only and never feed back
// into team scores.
type RoundScore struct {
	RoundNumber  int    `json:"round_number"`
	TeamID       string `json:"team_id"`
	ExplainerID  string `json:"explainer_id"`
	Correct      int    `json:"correct"`
	Skipped      int    `json:"skipped"`
	Penalties    int    `json:"penalties"`
	BasePoints   int    `json:"base_points"`
	BonusPoints  int    `json:"bonus_points"`
	TotalPoints  int    `json:"total_points"`
	PerfectRound bool   `json:"perfect_round"`
}

// TeamStanding is one row of the final ranking. Teams with equal totals share
// a rank.
type TeamStanding struct {
	Rank   int    `json:"rank"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// ExplainerStats aggregates per-explainer performance across a game.
type ExplainerStats struct {
	UserID     string  `json:"user_id"`
	Rounds     int     `json:"rounds"`
	Correct    int     `json:"correct"`
	Skipped    int     `json:"skipped"`
	Efficiency float64 `json:"efficiency"`
}

// ScoreRound recomputes a finished round's points. The skip accounting uses
// the same convention as the live engine: the first SkipPenaltyAfter skips
// are free, each further skip costs a point.
func ScoreRound(round models.Round, settings models.GameSettings) RoundScore {
	score := RoundScore{
		RoundNumber: round.RoundNumber,
		TeamID:      round.TeamID,
		ExplainerID: round.ExplainerID,
	}

	processed := 0
	for _, w := range round.Words {
		if w.Result == nil {
			continue
		}
		processed++
		switch *w.Result {
		case models.WordCorrect:
			score.Correct++
			score.BasePoints++
		case models.WordSkipped:
			score.Skipped++
			if score.Skipped > settings.SkipPenaltyAfter {
				score.BasePoints--
			}
		case models.WordPenalty:
			score.Penalties++
			score.BasePoints--
		}
	}

	if processed > 0 && score.Correct == processed {
		score.PerfectRound = true
		score.BonusPoints += perfectRoundBonus
	}
	elapsed := round.TimerSeconds - round.TimeRemaining
	if score.Correct > 0 && elapsed < fastRoundCutoff {
		score.BonusPoints += fastRoundBonus
	}

	score.TotalPoints = score.BasePoints + score.BonusPoints
	return score
}

// Standings ranks the teams by score, highest first, with shared ranks on
// ties. Secondary order is team id so output is deterministic.
func Standings(teams []models.Team) []TeamStanding {
	sorted := models.CloneTeams(teams)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]TeamStanding, 0, len(sorted))
	rank := 0
	prevScore := 0
	for i, t := range sorted {
		if i == 0 || t.Score != prevScore {
			rank = i + 1
			prevScore = t.Score
		}
		out = append(out, TeamStanding{Rank: rank, TeamID: t.ID, Name: t.Name, Score: t.Score})
	}
	return out
}

// ExplainerLeaderboard aggregates the round history per explainer, ordered by
// correct count descending. Efficiency is correct over words processed.
func ExplainerLeaderboard(history []models.Round) []ExplainerStats {
	byUser := make(map[string]*ExplainerStats)
	processedBy := make(map[string]int)

	for _, r := range history {
		st, ok := byUser[r.ExplainerID]
		if !ok {
			st = &ExplainerStats{UserID: r.ExplainerID}
			byUser[r.ExplainerID] = st
		}
		st.Rounds++
		for _, w := range r.Words {
			if w.Result == nil {
				continue
			}
			processedBy[r.ExplainerID]++
			switch *w.Result {
			case models.WordCorrect:
				st.Correct++
			case models.WordSkipped:
				st.Skipped++
			}
		}
	}

	out := make([]ExplainerStats, 0, len(byUser))
	for id, st := range byUser {
		if n := processedBy[id]; n > 0 {
			st.Efficiency = float64(st.Correct) / float64(n)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Correct != out[j].Correct {
			return out[i].Correct > out[j].Correct
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// MVP returns the explainer with the most correct words, or "" for an empty
// history.
func MVP(history []models.Round) string {
	board := ExplainerLeaderboard(history)
	if len(board) == 0 {
		return ""
	}
	return board[0].UserID
}
