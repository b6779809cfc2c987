package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/auth"
	"github.com/aliasgame/server/internal/models"
)

func GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, twitch_id, username, display_name, profile_image_url, email, created_at, updated_at
	FROM users
	WHERE id=$1
	`
	err := DB.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.TwitchID, &u.Username, &u.DisplayName,
		&u.ProfileImageURL, &u.Email, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return &u, nil
}

// UpsertTwitchUser inserts the Twitch identity or refreshes it on conflict,
// keyed by twitch_id.
func UpsertTwitchUser(ctx context.Context, tu *auth.TwitchUser) (*models.User, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	var u models.User
	q := `
	INSERT INTO users (id, twitch_id, username, display_name, profile_image_url, email, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	ON CONFLICT (twitch_id) DO UPDATE SET
		username = EXCLUDED.username,
		display_name = EXCLUDED.display_name,
		profile_image_url = EXCLUDED.profile_image_url,
		email = EXCLUDED.email,
		updated_at = now()
	RETURNING id, twitch_id, username, display_name, profile_image_url, email, created_at, updated_at
	`
	err = DB.QueryRow(ctx, q,
		id.String(), tu.ID, tu.Login, tu.DisplayName,
		nullable(tu.ProfileImageURL), nullable(tu.Email),
	).Scan(
		&u.ID, &u.TwitchID, &u.Username, &u.DisplayName,
		&u.ProfileImageURL, &u.Email, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Store adapts the package-level queries onto the interfaces the auth and
// game layers consume.
type Store struct{}

func (Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return GetUserByID(ctx, id)
}

func (Store) UpsertTwitchUser(ctx context.Context, tu *auth.TwitchUser) (*models.User, error) {
	return UpsertTwitchUser(ctx, tu)
}
