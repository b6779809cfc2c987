// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliasgame/server/internal/models"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_DB", "0")
	require.NoError(t, ConnectRedis())
	return mr
}

func TestPublishRoundRecord(t *testing.T) {
	mr := setupRedis(t)

	rec := RoundRecord{
		RoomCode:    "AB12CD",
		RoundNumber: 2,
		TeamID:      models.TeamA,
		ExplainerID: "u1",
		ScoreGained: 4,
		Timestamp:   1700000000,
	}
	require.NoError(t, PublishRoundRecord(context.Background(), rec))

	vals, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, vals, 1)

	var got RoundRecord
	require.NoError(t, json.Unmarshal([]byte(vals[0]), &got))
	assert.Equal(t, rec.RoomCode, got.RoomCode)
	assert.Equal(t, rec.ScoreGained, got.ScoreGained)
}

func TestPublishUsesConfiguredQueue(t *testing.T) {
	mr := setupRedis(t)
	t.Setenv("ROUND_RECORD_QUEUE", "custom_queue")

	require.NoError(t, PublishRoundRecord(context.Background(), RoundRecord{RoomCode: "ZZZZ00"}))

	vals, err := mr.List("custom_queue")
	require.NoError(t, err)
	assert.Len(t, vals, 1)
}

func TestRecorderAdapter(t *testing.T) {
	mr := setupRedis(t)

	round := models.Round{
		RoundNumber: 1,
		TeamID:      models.TeamB,
		ExplainerID: "u3",
		ScoreGained: -1,
	}
	teams := []models.Team{{ID: models.TeamA, Score: 2}, {ID: models.TeamB, Score: -1}}

	require.NoError(t, Recorder{}.RecordRound(context.Background(), "GG44HH", round, teams))

	vals, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, vals, 1)

	var got RoundRecord
	require.NoError(t, json.Unmarshal([]byte(vals[0]), &got))
	assert.Equal(t, "GG44HH", got.RoomCode)
	assert.Equal(t, "u3", got.ExplainerID)
	assert.Len(t, got.Teams, 2)
	assert.NotZero(t, got.Timestamp)
}
