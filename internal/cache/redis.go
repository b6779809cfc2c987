// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aliasgame/server/internal/models"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for finished round records.
var DefaultQueueName = "alias_rounds"

// RoundRecord is the fire-and-forget snapshot of a finished round, pushed to
// the record queue for out-of-band consumers.
type RoundRecord struct {
	RoomCode    string            `json:"room_code"`
	RoundNumber int               `json:"round_number"`
	TeamID      string            `json:"team_id"`
	ExplainerID string            `json:"explainer_id"`
	ScoreGained int               `json:"score_gained"`
	Words       []models.GameWord `json:"words"`
	Teams       []models.Team     `json:"teams"`
	Timestamp   int64             `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishRoundRecord serializes the record to JSON and pushes it onto the
// round queue. Quick network send only; callers treat failures as non-fatal.
func PublishRoundRecord(ctx context.Context, record RoundRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}

	queueName := getEnv("ROUND_RECORD_QUEUE", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// Recorder adapts the queue onto the session layer's RoundRecorder.
type Recorder struct{}

func (Recorder) RecordRound(ctx context.Context, roomCode string, round models.Round, teams []models.Team) error {
	return PublishRoundRecord(ctx, RoundRecord{
		RoomCode:    roomCode,
		RoundNumber: round.RoundNumber,
		TeamID:      round.TeamID,
		ExplainerID: round.ExplainerID,
		ScoreGained: round.ScoreGained,
		Words:       round.Words,
		Teams:       teams,
		Timestamp:   time.Now().Unix(),
	})
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
