// internal/session/service.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/broadcast"
	"github.com/aliasgame/server/internal/game"
	"github.com/aliasgame/server/internal/models"
	"github.com/aliasgame/server/internal/protocol"
)

// RoundRecorder receives finished rounds for out-of-band persistence. Record
// failures never fail the game flow.
type RoundRecorder interface {
	RecordRound(ctx context.Context, roomCode string, round models.Round, teams []models.Team) error
}

// Service ties the registry, the broadcast fabric, and one game engine per
// room together. All room and game mutation funnels through here so the
// envelope ordering guarantees hold: room-channel envelopes are published
// while the room's exclusive section is held, and for a single operation the
// room broadcast always precedes the lobby update.
type Service struct {
	registry *Registry
	fabric   *broadcast.Fabric
	corpus   game.WordCorpus
	language string
	records  RoundRecorder
	log      *logrus.Logger

	mu      sync.Mutex
	engines map[string]*game.Engine
}

func NewService(registry *Registry, fabric *broadcast.Fabric, corpus game.WordCorpus, language string, records RoundRecorder, log *logrus.Logger) *Service {
	return &Service{
		registry: registry,
		fabric:   fabric,
		corpus:   corpus,
		language: language,
		records:  records,
		log:      log,
		engines:  make(map[string]*game.Engine),
	}
}

// Registry exposes the room store, mainly for the HTTP read endpoints.
func (s *Service) Registry() *Registry { return s.registry }

// Fabric exposes the broadcast fabric for connection subscriptions.
func (s *Service) Fabric() *broadcast.Fabric { return s.fabric }

func (s *Service) engine(code string) (*game.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[code]
	if !ok {
		return nil, apperr.NotFound("room %s not found", code)
	}
	return e, nil
}

func (s *Service) dropEngine(code string) {
	s.mu.Lock()
	e, ok := s.engines[code]
	delete(s.engines, code)
	s.mu.Unlock()
	if ok {
		e.Timer.Stop()
	}
}

// RoomInfos lists every live room for the lobby.
func (s *Service) RoomInfos() []models.RoomInfo {
	return s.registry.RoomInfos()
}

// GetRoom returns a snapshot of one room.
func (s *Service) GetRoom(code string) (*models.Room, error) {
	var snap *models.Room
	err := s.registry.Mutate(code, func(room *models.Room) error {
		snap = room.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CreateRoom makes the caller admin of a fresh room and announces it to the
// lobby.
func (s *Service) CreateRoom(user *models.User, name string, maxPlayers int) (*models.Room, error) {
	room, err := s.registry.Create(name, maxPlayers, user)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[room.RoomCode] = game.NewEngine(s.corpus, s.language, nil)
	s.mu.Unlock()

	var snap *models.Room
	_ = s.registry.Mutate(room.RoomCode, func(room *models.Room) error {
		snap = room.Snapshot()
		s.fabric.PublishLobby(protocol.RoomCreated(room.Info()))
		return nil
	})

	s.log.WithFields(logrus.Fields{
		"room":  room.RoomCode,
		"admin": user.ID,
	}).Info("Room created")
	return snap, nil
}

// Join adds the user to the room, or reconnects them if already present.
// Returns the room snapshot for the caller's room_joined reply.
func (s *Service) Join(user *models.User, code string) (*models.Room, error) {
	var snap *models.Room
	err := s.registry.Mutate(code, func(room *models.Room) error {
		p, present := room.Participants[user.ID]
		if present {
			p.IsConnected = true
		} else {
			if len(room.Participants) >= room.MaxPlayers {
				return apperr.BadRequest("room %s is full", code)
			}
			p = &models.Participant{
				UserID:          user.ID,
				Username:        user.Username,
				DisplayName:     user.DisplayName,
				ProfileImageURL: user.ProfileImageURL,
				Role:            models.RolePlayer,
				IsConnected:     true,
				JoinedAt:        time.Now().UTC(),
			}
			room.Participants[user.ID] = p
		}
		room.Touch()

		snap = room.Snapshot()
		s.fabric.PublishRoom(code, protocol.UserJoined(*p))
		s.fabric.PublishRoom(code, protocol.RoomUpdated(snap))
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Leave removes the user. An emptied room is deleted; a departing admin is
// replaced deterministically.
func (s *Service) Leave(userID, code string) error {
	deleted := false
	err := s.registry.Mutate(code, func(room *models.Room) error {
		if _, ok := room.Participants[userID]; !ok {
			return apperr.NotFound("user %s is not in room %s", userID, code)
		}
		delete(room.Participants, userID)
		room.Touch()

		leftTeam := s.detachFromTeam(room, userID)

		if len(room.Participants) == 0 {
			s.registry.Delete(code)
			deleted = true
			s.fabric.PublishLobby(protocol.RoomDeleted(code))
			return nil
		}

		s.fabric.PublishRoom(code, protocol.UserLeft(userID))
		if room.AdminID == userID {
			next, _ := room.NextAdmin()
			room.AdminID = next
			room.Participants[next].Role = models.RoleAdmin
			s.fabric.PublishRoom(code, protocol.RoleUpdated(next, models.RoleAdmin))
		}
		s.fabric.PublishRoom(code, protocol.RoomUpdated(room.Snapshot()))
		if leftTeam != "" {
			s.publishTeams(room)
			if e, err := s.engine(code); err == nil {
				s.refreshRoomState(room, e)
			}
		}
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
		return nil
	})
	if err != nil {
		return err
	}
	if deleted {
		s.dropEngine(code)
		s.fabric.RemoveRoom(code)
		s.log.WithField("room", code).Info("Room deleted, last participant left")
	}
	return nil
}

// Kick removes the target from the room. Admin only, never against self.
func (s *Service) Kick(adminID, code, targetID string) error {
	return s.registry.Mutate(code, func(room *models.Room) error {
		if room.AdminID != adminID {
			return apperr.Forbidden("only the room admin can kick players")
		}
		if targetID == adminID {
			return apperr.BadRequest("admin cannot kick themselves")
		}
		if _, ok := room.Participants[targetID]; !ok {
			return apperr.NotFound("user %s is not in room %s", targetID, code)
		}
		delete(room.Participants, targetID)
		room.Touch()

		leftTeam := s.detachFromTeam(room, targetID)

		s.fabric.PublishRoom(code, protocol.UserKicked(targetID, adminID))
		s.fabric.PublishRoom(code, protocol.RoomUpdated(room.Snapshot()))
		if leftTeam != "" {
			s.publishTeams(room)
			if e, err := s.engine(code); err == nil {
				s.refreshRoomState(room, e)
			}
		}
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
		return nil
	})
}

// UpdateRole changes a participant's role. Granting admin transfers it from
// the current holder.
func (s *Service) UpdateRole(adminID, code, targetID string, role models.UserRole) error {
	if role != models.RoleAdmin && role != models.RolePlayer {
		return apperr.BadRequest("unknown role: %s", role)
	}
	return s.registry.Mutate(code, func(room *models.Room) error {
		if room.AdminID != adminID {
			return apperr.Forbidden("only the room admin can change roles")
		}
		target, ok := room.Participants[targetID]
		if !ok {
			return apperr.NotFound("user %s is not in room %s", targetID, code)
		}
		if targetID == adminID {
			return apperr.BadRequest("admin cannot change their own role")
		}
		if target.Role == role {
			return nil
		}

		room.Touch()
		if role == models.RoleAdmin {
			prev := room.Participants[room.AdminID]
			prev.Role = models.RolePlayer
			room.AdminID = targetID
			target.Role = models.RoleAdmin
			s.fabric.PublishRoom(code, protocol.RoleUpdated(targetID, models.RoleAdmin))
			s.fabric.PublishRoom(code, protocol.RoleUpdated(prev.UserID, models.RolePlayer))
		} else {
			target.Role = role
			s.fabric.PublishRoom(code, protocol.RoleUpdated(targetID, role))
		}
		s.fabric.PublishRoom(code, protocol.RoomUpdated(room.Snapshot()))
		return nil
	})
}

// Disconnect flags the user as offline but keeps their seat for reconnection.
func (s *Service) Disconnect(userID, code string) error {
	return s.registry.Mutate(code, func(room *models.Room) error {
		p, ok := room.Participants[userID]
		if !ok {
			return apperr.NotFound("user %s is not in room %s", userID, code)
		}
		p.IsConnected = false
		room.Touch()
		s.fabric.PublishRoom(code, protocol.RoomUpdated(room.Snapshot()))
		return nil
	})
}

// detachFromTeam pulls a departed user out of the pre-game roster. Caller
// holds the room lock. Returns the team id they left, or "".
func (s *Service) detachFromTeam(room *models.Room, userID string) string {
	e, err := s.engine(room.RoomCode)
	if err != nil || e.Started() {
		return ""
	}
	return e.Teams.RemovePlayer(userID)
}

// publishTeams broadcasts the current pre-game rosters. Caller holds the
// room lock.
func (s *Service) publishTeams(room *models.Room) {
	e, err := s.engine(room.RoomCode)
	if err != nil {
		return
	}
	s.fabric.PublishRoom(room.RoomCode, protocol.TeamsUpdated(models.CloneTeams(e.Teams.Teams)))
}
