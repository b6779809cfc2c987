// internal/game/engine.go
package game

import (
	"context"
	"time"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/models"
)

// Engine runs one room's game. It is not internally synchronized: every
// method is called under the owning room's exclusive section, except the
// corpus query inside StartRound, which is the one permitted suspension while
// holding it (only the holder writes the room).
type Engine struct {
	State *models.GameState
	Teams *TeamManager

	Timer *RoundTimer

	corpus   WordCorpus
	language string
}

func NewEngine(corpus WordCorpus, language string, settings *models.GameSettings) *Engine {
	s := models.DefaultGameSettings()
	if settings != nil {
		s = *settings
	}
	return &Engine{
		State: &models.GameState{
			Teams:        []models.Team{},
			RoundHistory: []models.Round{},
			UsedWords:    []string{},
			Settings:     s,
		},
		Teams:    NewTeamManager(),
		Timer:    NewRoundTimer(),
		corpus:   corpus,
		language: language,
	}
}

// Start snapshots the validated team rosters into the game state and stamps
// the start time. Fails if the game already started.
func (e *Engine) Start() error {
	if e.State.StartedAt != nil {
		return apperr.BadRequest("game already started")
	}
	if err := e.Teams.ValidateForStart(); err != nil {
		return err
	}
	e.State.Teams = models.CloneTeams(e.Teams.Teams)
	now := time.Now().UTC()
	e.State.StartedAt = &now
	e.State.CurrentTeamIndex = 0
	return nil
}

// Started reports whether Start has succeeded.
func (e *Engine) Started() bool { return e.State.StartedAt != nil }

// StartRound builds the next round for the current team: rotation-based
// explainer selection, a fresh word draw, and a full time budget.
func (e *Engine) StartRound(ctx context.Context) (models.Round, error) {
	if e.State.StartedAt == nil {
		return models.Round{}, apperr.BadRequest("game not started")
	}
	if e.State.WinnerTeamID != nil {
		return models.Round{}, apperr.BadRequest("game has already ended")
	}
	if e.State.CurrentRound != nil {
		return models.Round{}, apperr.BadRequest("round already in progress")
	}
	if e.State.CurrentTeamIndex >= len(e.State.Teams) {
		return models.Round{}, apperr.Internal("invalid team index")
	}
	team := e.State.Teams[e.State.CurrentTeamIndex]

	previous := ""
	for i := len(e.State.RoundHistory) - 1; i >= 0; i-- {
		if e.State.RoundHistory[i].TeamID == team.ID {
			previous = e.State.RoundHistory[i].ExplainerID
			break
		}
	}
	explainer, ok := e.explainerFor(team.ID, previous)
	if !ok {
		return models.Round{}, apperr.BadRequest("no explainer available for team %s", team.ID)
	}

	words, err := e.corpus.Query(ctx, e.language, e.State.Settings.Difficulty,
		e.State.UsedWords, e.State.Settings.WordsPerRound)
	if err != nil {
		return models.Round{}, err
	}
	for _, w := range words {
		e.State.UsedWords = append(e.State.UsedWords, w.Word)
	}

	now := time.Now().UTC()
	round := models.Round{
		RoundNumber:   len(e.State.RoundHistory) + 1,
		TeamID:        team.ID,
		ExplainerID:   explainer,
		Words:         words,
		TimerSeconds:  e.State.Settings.RoundDurationSeconds,
		TimeRemaining: e.State.Settings.RoundDurationSeconds,
		StartedAt:     &now,
	}
	e.State.CurrentRound = &round
	e.State.CurrentWordIndex = 0

	out := round
	out.Words = append([]models.GameWord(nil), round.Words...)
	return out, nil
}

// explainerFor resolves the rotation against the game-state roster, which is
// authoritative once the game started.
func (e *Engine) explainerFor(teamID, previous string) (string, bool) {
	team := e.State.Team(teamID)
	if team == nil || len(team.Players) == 0 {
		return "", false
	}
	if previous == "" {
		return team.Players[0], true
	}
	for i, id := range team.Players {
		if id == previous {
			return team.Players[(i+1)%len(team.Players)], true
		}
	}
	return team.Players[0], true
}

// CurrentWord returns the word awaiting a result, or nil when the round's
// word list is exhausted.
func (e *Engine) CurrentWord() *models.GameWord {
	round := e.State.CurrentRound
	if round == nil || e.State.CurrentWordIndex >= len(round.Words) {
		return nil
	}
	w := round.Words[e.State.CurrentWordIndex]
	return &w
}

// ProcessWordResult records the outcome for the current word and returns the
// score delta applied to both the round and the team.
//
// Skip accounting follows the live-engine convention: skips already recorded
// in this round are counted, and the incoming skip costs -1 once that count
// has reached Settings.SkipPenaltyAfter. With the default of 3, skips 1-3
// are free and the 4th onward each cost a point.
func (e *Engine) ProcessWordResult(result models.WordResult) (int, error) {
	round := e.State.CurrentRound
	if round == nil {
		return 0, apperr.BadRequest("no active round")
	}
	if e.State.CurrentWordIndex >= len(round.Words) {
		return 0, apperr.BadRequest("no word pending")
	}
	word := &round.Words[e.State.CurrentWordIndex]
	if word.Result != nil {
		return 0, apperr.BadRequest("word already processed")
	}

	var delta int
	switch result {
	case models.WordCorrect:
		delta = 1
	case models.WordSkipped:
		skips := 0
		for _, w := range round.Words {
			if w.Result != nil && *w.Result == models.WordSkipped {
				skips++
			}
		}
		if skips >= e.State.Settings.SkipPenaltyAfter {
			delta = -1
		}
	case models.WordPenalty:
		delta = -1
	default:
		return 0, apperr.BadRequest("unknown word result: %s", result)
	}

	r := result
	word.Result = &r
	spent := round.TimerSeconds - round.TimeRemaining
	word.TimeSpent = &spent

	round.ScoreGained += delta
	if team := e.State.Team(round.TeamID); team != nil {
		team.Score += delta
	}
	e.State.CurrentWordIndex++

	return delta, nil
}

// EndRound closes the current round: stamps it, appends it to history,
// rotates the team index, and evaluates the win condition.
func (e *Engine) EndRound() (models.Round, error) {
	round := e.State.CurrentRound
	if round == nil {
		return models.Round{}, apperr.BadRequest("no active round")
	}
	now := time.Now().UTC()
	round.EndedAt = &now

	finished := *round
	finished.Words = append([]models.GameWord(nil), round.Words...)

	e.State.RoundHistory = append(e.State.RoundHistory, finished)
	e.State.CurrentRound = nil
	e.State.CurrentWordIndex = 0
	e.State.CurrentTeamIndex = (e.State.CurrentTeamIndex + 1) % len(e.State.Teams)

	e.checkForWinner()
	return finished, nil
}

func (e *Engine) checkForWinner() {
	for i := range e.State.Teams {
		team := &e.State.Teams[i]
		if team.Score >= e.State.Settings.WinScore {
			id := team.ID
			e.State.WinnerTeamID = &id
			now := time.Now().UTC()
			e.State.EndedAt = &now
			return
		}
	}
}

// Tick decrements the round clock by one second. It returns the remaining
// time and whether the round ended because the budget ran out. Ending via
// Tick goes through EndRound, so the round_ended semantics are identical to
// the explicit path.
func (e *Engine) Tick() (remaining int, ended bool, err error) {
	round := e.State.CurrentRound
	if round == nil {
		return 0, false, apperr.BadRequest("no active round")
	}
	if round.TimeRemaining > 0 {
		round.TimeRemaining--
	}
	if round.TimeRemaining == 0 {
		if _, err := e.EndRound(); err != nil {
			return 0, false, err
		}
		return 0, true, nil
	}
	return round.TimeRemaining, false, nil
}

// Pause stops the timer task. Legal only while a round is active; nothing
// but the timer is touched.
func (e *Engine) Pause() error {
	if e.State.CurrentRound == nil {
		return apperr.BadRequest("no active round to pause")
	}
	e.Timer.Stop()
	return nil
}

// Resume validates that a round is active; the caller re-arms the timer task
// against the remaining budget.
func (e *Engine) Resume() error {
	if e.State.CurrentRound == nil {
		return apperr.BadRequest("no active round to resume")
	}
	return nil
}

// Reset returns the engine to the pre-game state, retaining settings.
func (e *Engine) Reset() {
	settings := e.State.Settings
	e.State = &models.GameState{
		Teams:        []models.Team{},
		RoundHistory: []models.Round{},
		UsedWords:    []string{},
		Settings:     settings,
	}
	e.Teams.ResetScores()
	e.Timer.Stop()
}

// Statistics is the read-only aggregate over a game.
type Statistics struct {
	TotalRounds     int           `json:"total_rounds"`
	TotalWordsShown int           `json:"total_words_shown"`
	TotalCorrect    int           `json:"total_correct"`
	TotalSkipped    int           `json:"total_skipped"`
	Teams           []models.Team `json:"teams"`
	Winner          *string       `json:"winner,omitempty"`
	GameDuration    *int64        `json:"game_duration,omitempty"`
}

func (e *Engine) Statistics() Statistics {
	stats := Statistics{
		TotalRounds: len(e.State.RoundHistory),
		Teams:       models.CloneTeams(e.State.Teams),
		Winner:      e.State.WinnerTeamID,
	}
	for _, r := range e.State.RoundHistory {
		stats.TotalWordsShown += len(r.Words)
		for _, w := range r.Words {
			if w.Result == nil {
				continue
			}
			switch *w.Result {
			case models.WordCorrect:
				stats.TotalCorrect++
			case models.WordSkipped:
				stats.TotalSkipped++
			}
		}
	}
	if e.State.StartedAt != nil {
		end := time.Now().UTC()
		if e.State.EndedAt != nil {
			end = *e.State.EndedAt
		}
		d := int64(end.Sub(*e.State.StartedAt).Seconds())
		stats.GameDuration = &d
	}
	return stats
}
