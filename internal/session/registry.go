// internal/session/registry.go
package session

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/models"
)

const (
	roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomCodeLength   = 6
	codeAttempts     = 10

	minRoomPlayers = 4
	maxRoomPlayers = 10
)

// Registry is the in-memory room store. The registry lock protects the map
// only; all room mutation is serialized by the room's own Mu, which Mutate
// acquires for the caller.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	rng   *rand.Rand
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*models.Room),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// generateCode draws a six-character code. Caller holds the registry lock.
func (r *Registry) generateCode() string {
	buf := make([]byte, roomCodeLength)
	for i := range buf {
		buf[i] = roomCodeAlphabet[r.rng.Intn(len(roomCodeAlphabet))]
	}
	return string(buf)
}

// Create inserts a new room with the caller as admin and returns it.
func (r *Registry) Create(name string, maxPlayers int, admin *models.User) (*models.Room, error) {
	if maxPlayers < minRoomPlayers || maxPlayers > maxRoomPlayers {
		return nil, apperr.BadRequest("max_players must be between %d and %d", minRoomPlayers, maxRoomPlayers)
	}
	if name == "" {
		return nil, apperr.BadRequest("room name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code := ""
	for i := 0; i < codeAttempts; i++ {
		c := r.generateCode()
		if _, taken := r.rooms[c]; !taken {
			code = c
			break
		}
	}
	if code == "" {
		return nil, apperr.BadRequest("could not allocate a room code, try again")
	}

	now := time.Now().UTC()
	room := &models.Room{
		RoomCode:   code,
		Name:       name,
		AdminID:    admin.ID,
		State:      models.RoomWaiting,
		MaxPlayers: maxPlayers,
		CreatedAt:  now,
		UpdatedAt:  now,
		Participants: map[string]*models.Participant{
			admin.ID: {
				UserID:          admin.ID,
				Username:        admin.Username,
				DisplayName:     admin.DisplayName,
				ProfileImageURL: admin.ProfileImageURL,
				Role:            models.RoleAdmin,
				IsConnected:     true,
				JoinedAt:        now,
			},
		},
	}
	r.rooms[code] = room
	return room, nil
}

// Mutate runs fn with the room's exclusive section held. Liveness is
// re-checked after the lock is taken because delete-on-empty removes rooms
// while holding their Mu.
func (r *Registry) Mutate(code string, fn func(*models.Room) error) error {
	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok {
		return apperr.NotFound("room %s not found", code)
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	r.mu.RLock()
	_, live := r.rooms[code]
	r.mu.RUnlock()
	if !live {
		return apperr.NotFound("room %s not found", code)
	}
	return fn(room)
}

// Delete removes the room from the map. Callers hold the room's Mu so a
// racing Mutate observes the removal.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	r.mu.Unlock()
}

// Codes returns the live room codes, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	r.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

// RoomInfos projects every live room for the lobby listing, sorted by code.
func (r *Registry) RoomInfos() []models.RoomInfo {
	codes := r.Codes()
	infos := make([]models.RoomInfo, 0, len(codes))
	for _, code := range codes {
		_ = r.Mutate(code, func(room *models.Room) error {
			infos = append(infos, room.Info())
			return nil
		})
	}
	return infos
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
