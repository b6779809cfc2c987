// internal/models/game.go
package models

import "time"

// WordResult is the outcome recorded for a single word.
type WordResult string

const (
	WordCorrect WordResult = "correct"
	WordSkipped WordResult = "skipped"
	WordPenalty WordResult = "penalty"
)

// Difficulty levels carried by the word corpus. "mixed" disables filtering.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyMixed  = "mixed"
)

// Team identities are fixed; every game has exactly these two.
const (
	TeamA = "team_a"
	TeamB = "team_b"
)

// Team groups players and carries the running score. Players is ordered and
// doubles as the explainer rotation.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	Players []string `json:"players"`
	Score   int      `json:"score"`
	IsReady bool     `json:"is_ready"`
}

// GameWord is one word shown during a round.
type GameWord struct {
	Word       string      `json:"word"`
	Difficulty string      `json:"difficulty"`
	Category   *string     `json:"category,omitempty"`
	Result     *WordResult `json:"result,omitempty"`
	TimeSpent  *int        `json:"time_spent,omitempty"`
}

// Round is one team's turn under the time budget.
type Round struct {
	RoundNumber   int        `json:"round_number"`
	TeamID        string     `json:"team_id"`
	ExplainerID   string     `json:"explainer_id"`
	Words         []GameWord `json:"words"`
	TimerSeconds  int        `json:"timer_seconds"`
	TimeRemaining int        `json:"time_remaining"`
	ScoreGained   int        `json:"score_gained"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// GameSettings configure one game. Zero value is not usable; use
// DefaultGameSettings.
type GameSettings struct {
	RoundDurationSeconds int    `json:"round_duration_seconds"`
	WordsPerRound        int    `json:"words_per_round"`
	SkipPenaltyAfter     int    `json:"skip_penalty_after"`
	WinScore             int    `json:"win_score"`
	Difficulty           string `json:"difficulty"`
}

func DefaultGameSettings() GameSettings {
	return GameSettings{
		RoundDurationSeconds: 60,
		WordsPerRound:        20,
		SkipPenaltyAfter:     3,
		WinScore:             50,
		Difficulty:           DifficultyMixed,
	}
}

// GameState is the full engine state for one room's game.
type GameState struct {
	Teams            []Team       `json:"teams"`
	CurrentRound     *Round       `json:"current_round,omitempty"`
	RoundHistory     []Round      `json:"round_history"`
	CurrentTeamIndex int          `json:"current_team_index"`
	CurrentWordIndex int          `json:"current_word_index"`
	UsedWords        []string     `json:"used_words"`
	Settings         GameSettings `json:"settings"`
	WinnerTeamID     *string      `json:"winner_team_id,omitempty"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	EndedAt          *time.Time   `json:"ended_at,omitempty"`
}

// Clone deep-copies the game state for broadcasting.
func (gs *GameState) Clone() *GameState {
	cp := *gs
	cp.Teams = CloneTeams(gs.Teams)
	cp.RoundHistory = make([]Round, len(gs.RoundHistory))
	for i := range gs.RoundHistory {
		cp.RoundHistory[i] = cloneRound(gs.RoundHistory[i])
	}
	if gs.CurrentRound != nil {
		r := cloneRound(*gs.CurrentRound)
		cp.CurrentRound = &r
	}
	cp.UsedWords = append([]string(nil), gs.UsedWords...)
	return &cp
}

func cloneRound(r Round) Round {
	r.Words = append([]GameWord(nil), r.Words...)
	return r
}

// CloneTeams copies the team slice including player rosters.
func CloneTeams(teams []Team) []Team {
	cp := make([]Team, len(teams))
	for i, t := range teams {
		t.Players = append([]string(nil), t.Players...)
		cp[i] = t
	}
	return cp
}

// Team returns the team with the given id, or nil.
func (gs *GameState) Team(id string) *Team {
	for i := range gs.Teams {
		if gs.Teams[i].ID == id {
			return &gs.Teams[i]
		}
	}
	return nil
}
