// internal/auth/twitch.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aliasgame/server/internal/apperr"
)

const (
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"
	defaultAuthURL  = "https://id.twitch.tv/oauth2/authorize"
	defaultUsersURL = "https://api.twitch.tv/helix/users"
)

// TwitchUser is the identity payload returned by the helix users endpoint.
type TwitchUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Email           string `json:"email"`
}

// TwitchClient exchanges OAuth codes for Twitch identities.
type TwitchClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	TokenURL string
	AuthURL  string
	UsersURL string

	HTTP *http.Client
}

// NewTwitchClient builds a client from TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET
// and TWITCH_REDIRECT_URI.
func NewTwitchClient() *TwitchClient {
	return &TwitchClient{
		ClientID:     os.Getenv("TWITCH_CLIENT_ID"),
		ClientSecret: os.Getenv("TWITCH_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("TWITCH_REDIRECT_URI"),
		TokenURL:     defaultTokenURL,
		AuthURL:      defaultAuthURL,
		UsersURL:     defaultUsersURL,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL is where the client sends the user to grant access.
func (c *TwitchClient) AuthorizeURL() string {
	q := url.Values{}
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "user:read:email")
	return c.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for the authenticated Twitch user.
func (c *TwitchClient) Exchange(ctx context.Context, code string) (*TwitchUser, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.Unauthenticated("token exchange rejected: %s", strings.TrimSpace(string(body)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, apperr.Unauthenticated("token exchange returned no access token")
	}

	return c.fetchUser(ctx, tok.AccessToken)
}

func (c *TwitchClient) fetchUser(ctx context.Context, accessToken string) (*TwitchUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.UsersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build users request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", c.ClientID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("users request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.Unauthenticated("users request rejected: %s", strings.TrimSpace(string(body)))
	}

	var payload struct {
		Data []TwitchUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, apperr.Unauthenticated("users response contained no user")
	}
	return &payload.Data[0], nil
}
