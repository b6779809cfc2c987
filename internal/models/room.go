// internal/models/room.go
package models

import (
	"sort"
	"sync"
	"time"
)

// RoomState is the room lifecycle state.
type RoomState string

const (
	RoomWaiting    RoomState = "waiting"
	RoomReady      RoomState = "ready"
	RoomInProgress RoomState = "in_progress"
	RoomPaused     RoomState = "paused"
	RoomFinished   RoomState = "finished"
)

// UserRole is a participant's role within a room.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

// Participant is a user bound to a room.
type Participant struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	Role            UserRole  `json:"role"`
	TeamID          *string   `json:"team_id,omitempty"`
	IsConnected     bool      `json:"is_connected"`
	JoinedAt        time.Time `json:"joined_at"`
}

// Room holds one lobby and, once started, its game state. All mutation goes
// through Mu; the registry hands rooms out locked via Mutate.
type Room struct {
	RoomCode     string                  `json:"room_code"`
	Name         string                  `json:"name"`
	AdminID      string                  `json:"admin_id"`
	State        RoomState               `json:"state"`
	MaxPlayers   int                     `json:"max_players"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	Participants map[string]*Participant `json:"participants"`
	Game         *GameState              `json:"game,omitempty"`

	Mu sync.Mutex `json:"-"`
}

// RoomInfo is the lobby-listing projection of a room.
type RoomInfo struct {
	RoomCode       string    `json:"room_code"`
	Name           string    `json:"name"`
	CurrentPlayers int       `json:"current_players"`
	MaxPlayers     int       `json:"max_players"`
	State          RoomState `json:"state"`
	AdminUsername  string    `json:"admin_username"`
}

// Info projects the room for the lobby. Caller holds Mu.
func (r *Room) Info() RoomInfo {
	admin := ""
	if p, ok := r.Participants[r.AdminID]; ok {
		admin = p.Username
	}
	return RoomInfo{
		RoomCode:       r.RoomCode,
		Name:           r.Name,
		CurrentPlayers: len(r.Participants),
		MaxPlayers:     r.MaxPlayers,
		State:          r.State,
		AdminUsername:  admin,
	}
}

// Touch refreshes UpdatedAt. Caller holds Mu.
func (r *Room) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// NextAdmin picks the succession candidate: the remaining participant with
// the lowest user id. Map iteration order is randomized, so succession is
// made deterministic by sorting. Caller holds Mu.
func (r *Room) NextAdmin() (string, bool) {
	if len(r.Participants) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(r.Participants))
	for id := range r.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0], true
}

// Snapshot deep-copies the room for broadcasting, so subscribers never
// observe a room mutating under them. Caller holds Mu.
func (r *Room) Snapshot() *Room {
	cp := &Room{
		RoomCode:     r.RoomCode,
		Name:         r.Name,
		AdminID:      r.AdminID,
		State:        r.State,
		MaxPlayers:   r.MaxPlayers,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Participants: make(map[string]*Participant, len(r.Participants)),
	}
	for id, p := range r.Participants {
		pc := *p
		cp.Participants[id] = &pc
	}
	if r.Game != nil {
		cp.Game = r.Game.Clone()
	}
	return cp
}

// AllDisconnected reports whether no participant has a live connection.
// Caller holds Mu. An empty room counts as disconnected for reaping.
func (r *Room) AllDisconnected() bool {
	for _, p := range r.Participants {
		if p.IsConnected {
			return false
		}
	}
	return true
}
