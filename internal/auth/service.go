// internal/auth/service.go
package auth

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/models"
)

// Verifier turns a bearer token into the user it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// UserStore is the persistence the auth flow needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpsertTwitchUser(ctx context.Context, tu *TwitchUser) (*models.User, error)
}

// Service implements the full login flow: Twitch code exchange, user upsert,
// token mint, token verify.
type Service struct {
	twitch *TwitchClient
	users  UserStore
	log    *logrus.Logger
}

func NewService(twitch *TwitchClient, users UserStore, log *logrus.Logger) *Service {
	return &Service{twitch: twitch, users: users, log: log}
}

// AuthorizeURL is where a client starts the OAuth dance.
func (s *Service) AuthorizeURL() string {
	return s.twitch.AuthorizeURL()
}

// Login exchanges the OAuth code, upserts the user, and mints an access
// token.
func (s *Service) Login(ctx context.Context, code string) (string, *models.User, error) {
	if code == "" {
		return "", nil, apperr.BadRequest("missing authorization code")
	}
	tu, err := s.twitch.Exchange(ctx, code)
	if err != nil {
		return "", nil, err
	}
	user, err := s.users.UpsertTwitchUser(ctx, tu)
	if err != nil {
		return "", nil, err
	}
	token, err := CreateJWT(Claims{
		UserID:   user.ID,
		TwitchID: user.TwitchID,
		Username: user.Username,
	})
	if err != nil {
		return "", nil, apperr.Internal("failed to mint token: %v", err)
	}
	s.log.WithFields(logrus.Fields{
		"user":   user.ID,
		"twitch": user.TwitchID,
	}).Info("User logged in")
	return token, user, nil
}

// Verify validates the token and loads its user.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := AuthenticateJWT(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Unauthenticated("token subject no longer exists")
	}
	return user, nil
}
