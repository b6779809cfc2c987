// internal/game/teams_test.go
package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliasgame/server/internal/models"
)

func TestFixedTeamIdentities(t *testing.T) {
	tm := NewTeamManager()
	require.Len(t, tm.Teams, 2)
	assert.Equal(t, models.TeamA, tm.Teams[0].ID)
	assert.Equal(t, models.TeamB, tm.Teams[1].ID)
	assert.Nil(t, tm.Team("team_c"))
}

func TestAddPlayerMovesAtomically(t *testing.T) {
	tm := NewTeamManager()
	require.NoError(t, tm.AddPlayer("u1", models.TeamA))
	require.NoError(t, tm.AddPlayer("u1", models.TeamB))

	assert.Empty(t, tm.Team(models.TeamA).Players)
	assert.Equal(t, []string{"u1"}, tm.Team(models.TeamB).Players)
	assert.Equal(t, models.TeamB, tm.PlayerTeam("u1").ID)
}

func TestTeamCapacityAndReadiness(t *testing.T) {
	tm := NewTeamManager()
	for i := 0; i < 5; i++ {
		require.NoError(t, tm.AddPlayer(fmt.Sprintf("u%d", i), models.TeamA))
	}
	assert.True(t, tm.Team(models.TeamA).IsReady)

	err := tm.AddPlayer("u5", models.TeamA)
	require.Error(t, err, "sixth player exceeds capacity")

	assert.Equal(t, models.TeamA, tm.RemovePlayer("u0"))
	assert.Equal(t, models.TeamA, tm.RemovePlayer("u1"))
	assert.Equal(t, models.TeamA, tm.RemovePlayer("u2"))
	assert.Equal(t, models.TeamA, tm.RemovePlayer("u3"))
	assert.False(t, tm.Team(models.TeamA).IsReady, "readiness drops below minimum size")

	assert.Equal(t, "", tm.RemovePlayer("missing"))
}

func TestAutoBalance(t *testing.T) {
	tm := NewTeamManager()
	participants := map[string]*models.Participant{}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		participants[id] = &models.Participant{UserID: id, Role: models.RolePlayer, JoinedAt: time.Now()}
	}
	participants["boss"] = &models.Participant{UserID: "boss", Role: models.RoleAdmin}

	tm.AutoBalance(participants)

	a, b := tm.Team(models.TeamA), tm.Team(models.TeamB)
	assert.Equal(t, 5, len(a.Players)+len(b.Players), "admin is not dealt in")
	assert.LessOrEqual(t, len(a.Players)-len(b.Players), 1)
	assert.True(t, a.IsReady)
	assert.True(t, b.IsReady)
}

func TestValidateForStart(t *testing.T) {
	tm := NewTeamManager()
	assert.Error(t, tm.ValidateForStart(), "no teams populated")

	require.NoError(t, tm.AddPlayer("u1", models.TeamA))
	require.NoError(t, tm.AddPlayer("u2", models.TeamA))
	assert.Error(t, tm.ValidateForStart(), "a single team cannot play")

	require.NoError(t, tm.AddPlayer("u3", models.TeamB))
	assert.Error(t, tm.ValidateForStart(), "one-player team below minimum")

	require.NoError(t, tm.AddPlayer("u4", models.TeamB))
	assert.NoError(t, tm.ValidateForStart())

	// 5 vs 2 exceeds the allowed imbalance.
	require.NoError(t, tm.AddPlayer("u5", models.TeamA))
	require.NoError(t, tm.AddPlayer("u6", models.TeamA))
	require.NoError(t, tm.AddPlayer("u7", models.TeamA))
	assert.Error(t, tm.ValidateForStart())
}

func TestNextExplainerWraps(t *testing.T) {
	tm := NewTeamManager()
	require.NoError(t, tm.AddPlayer("u1", models.TeamA))
	require.NoError(t, tm.AddPlayer("u2", models.TeamA))
	require.NoError(t, tm.AddPlayer("u3", models.TeamA))

	next, ok := tm.NextExplainer(models.TeamA, "")
	require.True(t, ok)
	assert.Equal(t, "u1", next)

	next, _ = tm.NextExplainer(models.TeamA, "u1")
	assert.Equal(t, "u2", next)
	next, _ = tm.NextExplainer(models.TeamA, "u3")
	assert.Equal(t, "u1", next, "rotation wraps")

	next, _ = tm.NextExplainer(models.TeamA, "gone")
	assert.Equal(t, "u1", next, "departed explainer falls back to the first player")

	_, ok = tm.NextExplainer(models.TeamB, "")
	assert.False(t, ok, "empty team has no explainer")
}
