// internal/game/engine_test.go
package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliasgame/server/internal/models"
)

// testCorpus builds a MemoryCorpus with n distinct medium words in "uk".
func testCorpus(n int) *MemoryCorpus {
	words := make([]models.GameWord, n)
	for i := range words {
		words[i] = models.GameWord{Word: fmt.Sprintf("word-%03d", i), Difficulty: models.DifficultyMedium}
	}
	return NewMemoryCorpus(words, nil)
}

// setupStartedEngine builds an engine with two full teams and a started game.
func setupStartedEngine(t *testing.T, settings *models.GameSettings, corpusSize int) *Engine {
	t.Helper()
	e := NewEngine(testCorpus(corpusSize), "uk", settings)
	require.NoError(t, e.Teams.AddPlayer("u1", models.TeamA))
	require.NoError(t, e.Teams.AddPlayer("u2", models.TeamA))
	require.NoError(t, e.Teams.AddPlayer("u3", models.TeamB))
	require.NoError(t, e.Teams.AddPlayer("u4", models.TeamB))
	require.NoError(t, e.Start())
	return e
}

func TestStartRequiresValidTeams(t *testing.T) {
	e := NewEngine(testCorpus(50), "uk", nil)

	err := e.Start()
	require.Error(t, err, "empty teams must not start")

	require.NoError(t, e.Teams.AddPlayer("u1", models.TeamA))
	require.NoError(t, e.Teams.AddPlayer("u2", models.TeamA))
	err = e.Start()
	require.Error(t, err, "one team alone must not start")

	require.NoError(t, e.Teams.AddPlayer("u3", models.TeamB))
	err = e.Start()
	require.Error(t, err, "undersized second team must not start")

	require.NoError(t, e.Teams.AddPlayer("u4", models.TeamB))
	require.NoError(t, e.Start())
	assert.True(t, e.Started())
	assert.NotNil(t, e.State.StartedAt)
	assert.Equal(t, 0, e.State.CurrentTeamIndex)

	assert.Error(t, e.Start(), "double start must fail")
}

func TestStartRoundDrawsFreshWords(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 5
	e := setupStartedEngine(t, &settings, 50)

	round, err := e.StartRound(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, round.RoundNumber)
	assert.Equal(t, models.TeamA, round.TeamID)
	assert.Equal(t, "u1", round.ExplainerID, "first round uses the first player")
	assert.Len(t, round.Words, 5)
	assert.Equal(t, settings.RoundDurationSeconds, round.TimeRemaining)

	assert.Len(t, e.State.UsedWords, 5)
	seen := map[string]bool{}
	for _, w := range round.Words {
		assert.False(t, seen[w.Word], "no duplicate draws")
		seen[w.Word] = true
		assert.Contains(t, e.State.UsedWords, w.Word)
	}

	_, err = e.StartRound(context.Background())
	assert.Error(t, err, "a second concurrent round must fail")
}

func TestStartRoundFailsWhenPoolExhausted(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 5
	e := setupStartedEngine(t, &settings, 7)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.EndRound()
	require.NoError(t, err)

	// 2 words remain, 5 needed.
	_, err = e.StartRound(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough words")
}

func TestExplainerRotation(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 2
	e := setupStartedEngine(t, &settings, 100)

	var explainers []string
	for i := 0; i < 6; i++ {
		round, err := e.StartRound(context.Background())
		require.NoError(t, err)
		explainers = append(explainers, round.ExplainerID)
		_, err = e.EndRound()
		require.NoError(t, err)
	}
	// Teams alternate; within a team the roster rotates with wrap.
	assert.Equal(t, []string{"u1", "u3", "u2", "u4", "u1", "u3"}, explainers)
}

func TestCorrectWordFlowEndsRoundAtExhaustion(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 3
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		delta, err := e.ProcessWordResult(models.WordCorrect)
		require.NoError(t, err)
		assert.Equal(t, 1, delta)
	}
	assert.Nil(t, e.CurrentWord(), "word list exhausted")

	finished, err := e.EndRound()
	require.NoError(t, err)
	assert.Equal(t, 3, finished.ScoreGained)
	assert.Equal(t, 3, e.State.Team(models.TeamA).Score)
	assert.Len(t, e.State.RoundHistory, 1)
	assert.Nil(t, e.State.CurrentRound)
	assert.Equal(t, 1, e.State.CurrentTeamIndex, "turn passes to the other team")
}

func TestSkipPenaltySequence(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 5
	settings.SkipPenaltyAfter = 3
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	var deltas []int
	for i := 0; i < 4; i++ {
		d, err := e.ProcessWordResult(models.WordSkipped)
		require.NoError(t, err)
		deltas = append(deltas, d)
	}
	d, err := e.ProcessWordResult(models.WordCorrect)
	require.NoError(t, err)
	deltas = append(deltas, d)

	assert.Equal(t, []int{0, 0, 0, -1, 1}, deltas)
	assert.Equal(t, 0, e.State.CurrentRound.ScoreGained)
	assert.Equal(t, 0, e.State.Team(models.TeamA).Score)
}

func TestPenaltyResult(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 2
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	d, err := e.ProcessWordResult(models.WordPenalty)
	require.NoError(t, err)
	assert.Equal(t, -1, d)
	assert.Equal(t, -1, e.State.Team(models.TeamA).Score, "scores may go negative")
}

func TestWordResultPreconditions(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 2
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.ProcessWordResult(models.WordCorrect)
	assert.Error(t, err, "no active round")

	_, err = e.StartRound(context.Background())
	require.NoError(t, err)

	_, err = e.ProcessWordResult("banana")
	assert.Error(t, err, "unknown result value")

	_, err = e.ProcessWordResult(models.WordCorrect)
	require.NoError(t, err)
	_, err = e.ProcessWordResult(models.WordCorrect)
	require.NoError(t, err)
	_, err = e.ProcessWordResult(models.WordCorrect)
	assert.Error(t, err, "no word pending after exhaustion")
}

func TestWinDetection(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 3
	settings.WinScore = 3
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.ProcessWordResult(models.WordCorrect)
		require.NoError(t, err)
	}
	_, err = e.EndRound()
	require.NoError(t, err)

	require.NotNil(t, e.State.WinnerTeamID)
	assert.Equal(t, models.TeamA, *e.State.WinnerTeamID)
	assert.NotNil(t, e.State.EndedAt)

	_, err = e.StartRound(context.Background())
	assert.Error(t, err, "no rounds after the game is won")
}

func TestTickEndsRoundAtZero(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 2
	settings.RoundDurationSeconds = 2
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	remaining, ended, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.False(t, ended)

	_, ended, err = e.Tick()
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Nil(t, e.State.CurrentRound)
	assert.Len(t, e.State.RoundHistory, 1)
}

func TestPauseResumeRequireActiveRound(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 2
	e := setupStartedEngine(t, &settings, 50)

	assert.Error(t, e.Pause())
	assert.Error(t, e.Resume())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	assert.NoError(t, e.Pause())
	assert.NoError(t, e.Resume())
}

func TestResetKeepsSettings(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 4
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.ProcessWordResult(models.WordCorrect)
	require.NoError(t, err)

	e.Reset()
	assert.Nil(t, e.State.StartedAt)
	assert.Empty(t, e.State.RoundHistory)
	assert.Empty(t, e.State.UsedWords)
	assert.Equal(t, 4, e.State.Settings.WordsPerRound)
}

func TestStatistics(t *testing.T) {
	settings := models.DefaultGameSettings()
	settings.WordsPerRound = 3
	e := setupStartedEngine(t, &settings, 50)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.ProcessWordResult(models.WordCorrect)
	require.NoError(t, err)
	_, err = e.ProcessWordResult(models.WordSkipped)
	require.NoError(t, err)
	_, err = e.EndRound()
	require.NoError(t, err)

	stats := e.Statistics()
	assert.Equal(t, 1, stats.TotalRounds)
	assert.Equal(t, 3, stats.TotalWordsShown)
	assert.Equal(t, 1, stats.TotalCorrect)
	assert.Equal(t, 1, stats.TotalSkipped)
	assert.NotNil(t, stats.GameDuration)
}
