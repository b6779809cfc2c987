// internal/session/reaper.go
package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/models"
	"github.com/aliasgame/server/internal/protocol"
)

const reaperInterval = time.Minute

// RunReaper deletes abandoned rooms until ctx is canceled: a room is reaped
// once every participant is disconnected and it has not been touched for
// reapAfter. Deleted rooms are announced to the lobby and their channels torn
// down.
func (s *Service) RunReaper(ctx context.Context, reapAfter time.Duration) {
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapOnce(reapAfter)
		}
	}
}

func (s *Service) reapOnce(reapAfter time.Duration) {
	cutoff := time.Now().UTC().Add(-reapAfter)
	var reaped []string
	for _, code := range s.registry.Codes() {
		code := code
		_ = s.registry.Mutate(code, func(room *models.Room) error {
			if !room.UpdatedAt.Before(cutoff) || !room.AllDisconnected() {
				return nil
			}
			s.registry.Delete(code)
			s.fabric.PublishLobby(protocol.RoomDeleted(code))
			reaped = append(reaped, code)
			return nil
		})
	}
	for _, code := range reaped {
		s.dropEngine(code)
		s.fabric.RemoveRoom(code)
	}
	if len(reaped) > 0 {
		s.log.WithFields(logrus.Fields{
			"count": len(reaped),
			"rooms": reaped,
		}).Info("Reaped abandoned rooms")
	}
}
