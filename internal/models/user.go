// internal/models/user.go
package models

import "time"

// User is the persisted principal, keyed by the external identity.
type User struct {
	ID              string    `json:"id"`
	TwitchID        string    `json:"twitch_id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	Email           *string   `json:"email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserInfo is the public projection handed to clients.
type UserInfo struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	DisplayName     string  `json:"display_name"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

func (u *User) Info() UserInfo {
	return UserInfo{
		ID:              u.ID,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		ProfileImageURL: u.ProfileImageURL,
	}
}
