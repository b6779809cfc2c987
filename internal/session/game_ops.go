// internal/session/game_ops.go
package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/game"
	"github.com/aliasgame/server/internal/models"
	"github.com/aliasgame/server/internal/protocol"
)

// withGame runs fn under the room's exclusive section with the room's engine
// resolved. Callers must already be participants; fn enforces finer checks.
func (s *Service) withGame(code, userID string, fn func(room *models.Room, e *game.Engine) error) error {
	e, err := s.engine(code)
	if err != nil {
		return err
	}
	return s.registry.Mutate(code, func(room *models.Room) error {
		if _, ok := room.Participants[userID]; !ok {
			return apperr.Forbidden("user %s is not in room %s", userID, code)
		}
		return fn(room, e)
	})
}

// JoinTeam moves the caller onto a team. Only legal before the game starts.
func (s *Service) JoinTeam(userID, code, teamID string) error {
	return s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		if e.Started() {
			return apperr.BadRequest("cannot change teams after the game has started")
		}
		if err := e.Teams.AddPlayer(userID, teamID); err != nil {
			return err
		}
		p := room.Participants[userID]
		tid := teamID
		p.TeamID = &tid
		room.Touch()

		team := *e.Teams.Team(teamID)
		team.Players = append([]string(nil), team.Players...)
		s.fabric.PublishRoom(code, protocol.TeamJoined(team, userID))
		s.fabric.PublishRoom(code, protocol.TeamsUpdated(models.CloneTeams(e.Teams.Teams)))
		s.refreshRoomState(room, e)
		return nil
	})
}

// LeaveTeam removes the caller from their team.
func (s *Service) LeaveTeam(userID, code string) error {
	return s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		if e.Started() {
			return apperr.BadRequest("cannot change teams after the game has started")
		}
		left := e.Teams.RemovePlayer(userID)
		if left == "" {
			return apperr.BadRequest("you are not on a team")
		}
		room.Participants[userID].TeamID = nil
		room.Touch()

		s.fabric.PublishRoom(code, protocol.TeamLeft(left, userID))
		s.fabric.PublishRoom(code, protocol.TeamsUpdated(models.CloneTeams(e.Teams.Teams)))
		s.refreshRoomState(room, e)
		return nil
	})
}

// MarkReady confirms the caller's team is ready to play.
func (s *Service) MarkReady(userID, code string) error {
	return s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		team := e.Teams.PlayerTeam(userID)
		if team == nil {
			return apperr.BadRequest("you are not on a team")
		}
		if !team.IsReady {
			return apperr.BadRequest("team %s does not have enough players", team.Name)
		}
		room.Touch()
		s.fabric.PublishRoom(code, protocol.TeamReady(team.ID))
		return nil
	})
}

// StartGame snapshots the rosters and moves the room into play. Admin only.
func (s *Service) StartGame(userID, code string) error {
	return s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		if room.AdminID != userID {
			return apperr.Forbidden("only the room admin can start the game")
		}
		if err := e.Start(); err != nil {
			return err
		}
		room.Game = e.State
		room.State = models.RoomInProgress
		room.Touch()

		s.fabric.PublishRoom(code, protocol.GameStarted())
		s.fabric.PublishRoom(code, protocol.GameStateUpdated(e.State.Clone()))
		s.fabric.PublishRoom(code, protocol.RoomUpdated(room.Snapshot()))
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))

		s.log.WithFields(logrus.Fields{"room": code, "admin": userID}).Info("Game started")
		return nil
	})
}

// StartRound begins the current team's turn and arms the countdown.
func (s *Service) StartRound(ctx context.Context, userID, code string) error {
	err := s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		round, err := e.StartRound(ctx)
		if err != nil {
			return err
		}
		room.Touch()
		s.fabric.PublishRoom(code, protocol.RoundStarted(round))
		return nil
	})
	if err != nil {
		return err
	}
	s.armTimer(code)
	return nil
}

// WordAction records the explainer's verdict on the current word. It returns
// the next word for the explainer's unicast word_received, nil when the round
// ended.
func (s *Service) WordAction(userID, code string, result models.WordResult) (*models.GameWord, error) {
	var next *models.GameWord
	err := s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		round := e.State.CurrentRound
		if round == nil {
			return apperr.BadRequest("no active round")
		}
		if round.ExplainerID != userID {
			return apperr.Forbidden("only the round's explainer can submit word results")
		}

		delta, err := e.ProcessWordResult(result)
		if err != nil {
			return err
		}
		room.Touch()
		s.fabric.PublishRoom(code, protocol.WordResultRecorded(result, delta))

		next = e.CurrentWord()
		if next == nil {
			finished, err := e.EndRound()
			if err != nil {
				return err
			}
			s.finishRound(room, e, finished)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// EndRound closes the round early. Admin or the explainer.
func (s *Service) EndRound(userID, code string) error {
	return s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		round := e.State.CurrentRound
		if round == nil {
			return apperr.BadRequest("no active round")
		}
		if userID != room.AdminID && userID != round.ExplainerID {
			return apperr.Forbidden("only the admin or the explainer can end the round")
		}
		finished, err := e.EndRound()
		if err != nil {
			return err
		}
		room.Touch()
		s.finishRound(room, e, finished)
		return nil
	})
}

// PauseGame halts the countdown mid-round. Admin only.
func (s *Service) PauseGame(userID, code string) error {
	return s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		if room.AdminID != userID {
			return apperr.Forbidden("only the room admin can pause the game")
		}
		if err := e.Pause(); err != nil {
			return err
		}
		room.State = models.RoomPaused
		room.Touch()
		s.fabric.PublishRoom(code, protocol.GamePaused())
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
		return nil
	})
}

// ResumeGame re-arms the countdown against the remaining budget. Admin only.
func (s *Service) ResumeGame(userID, code string) error {
	err := s.withGame(code, userID, func(room *models.Room, e *game.Engine) error {
		if room.AdminID != userID {
			return apperr.Forbidden("only the room admin can resume the game")
		}
		if err := e.Resume(); err != nil {
			return err
		}
		room.State = models.RoomInProgress
		room.Touch()
		s.fabric.PublishRoom(code, protocol.GameResumed())
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
		return nil
	})
	if err != nil {
		return err
	}
	s.armTimer(code)
	return nil
}

// armTimer starts the 1 Hz countdown for the room's active round. Each tick
// re-enters the room's exclusive section, so timer-driven round endings use
// the same path as explicit ones.
func (s *Service) armTimer(code string) {
	e, err := s.engine(code)
	if err != nil {
		return
	}
	e.Timer.Start(func() bool {
		alive := true
		err := s.registry.Mutate(code, func(room *models.Room) error {
			if e.State.CurrentRound == nil {
				alive = false
				return nil
			}
			remaining, ended, err := e.Tick()
			if err != nil {
				alive = false
				return err
			}
			room.Touch()
			s.fabric.PublishRoom(code, protocol.TimerUpdate(remaining))
			if ended {
				alive = false
				finished := e.State.RoundHistory[len(e.State.RoundHistory)-1]
				s.finishRound(room, e, finished)
			}
			return nil
		})
		if err != nil {
			s.log.WithError(err).WithField("room", code).Warn("Round timer tick failed")
			return false
		}
		return alive
	})
}

// finishRound broadcasts the round ending and, when the game is won, the
// final result. Caller holds the room lock; the engine has already appended
// the round to history.
func (s *Service) finishRound(room *models.Room, e *game.Engine, finished models.Round) {
	e.Timer.Stop()
	code := room.RoomCode

	var nextTeamID *string
	if e.State.WinnerTeamID == nil && len(e.State.Teams) > 0 {
		id := e.State.Teams[e.State.CurrentTeamIndex].ID
		nextTeamID = &id
	}
	s.fabric.PublishRoom(code, protocol.RoundEnded(finished, nextTeamID))

	if s.records != nil {
		teams := models.CloneTeams(e.State.Teams)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.records.RecordRound(ctx, code, finished, teams); err != nil {
				s.log.WithError(err).WithField("room", code).Warn("Failed to record finished round")
			}
		}()
	}

	if e.State.WinnerTeamID != nil {
		winner := e.State.Team(*e.State.WinnerTeamID)
		room.State = models.RoomFinished
		s.fabric.PublishRoom(code, protocol.GameEnded(*winner, models.CloneTeams(e.State.Teams)))
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
		s.log.WithFields(logrus.Fields{
			"room":   code,
			"winner": *e.State.WinnerTeamID,
		}).Info("Game ended")
	}
}

// GameSummary is the read-only scoring view over a room's game: live
// aggregates plus the analyzer's per-round breakdown, standings and
// explainer leaderboard.
type GameSummary struct {
	Statistics game.Statistics       `json:"statistics"`
	Standings  []game.TeamStanding   `json:"standings"`
	Rounds     []game.RoundScore     `json:"rounds"`
	Explainers []game.ExplainerStats `json:"explainers"`
	MVP        string                `json:"mvp,omitempty"`
}

// Summary computes the scoring breakdown for a room's game. Available from
// game start onward; callers do not need to be participants.
func (s *Service) Summary(code string) (*GameSummary, error) {
	e, err := s.engine(code)
	if err != nil {
		return nil, err
	}
	var out *GameSummary
	err = s.registry.Mutate(code, func(room *models.Room) error {
		if room.Game == nil {
			return apperr.BadRequest("game has not started in room %s", code)
		}
		sum := &GameSummary{
			Statistics: e.Statistics(),
			Standings:  game.Standings(e.State.Teams),
			Explainers: game.ExplainerLeaderboard(e.State.RoundHistory),
			MVP:        game.MVP(e.State.RoundHistory),
		}
		for _, r := range e.State.RoundHistory {
			sum.Rounds = append(sum.Rounds, game.ScoreRound(r, e.State.Settings))
		}
		out = sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// refreshRoomState recomputes the derived waiting/ready flag after a roster
// change. Caller holds the room lock.
func (s *Service) refreshRoomState(room *models.Room, e *game.Engine) {
	if room.State != models.RoomWaiting && room.State != models.RoomReady {
		return
	}
	next := models.RoomWaiting
	if e.Teams.ValidateForStart() == nil {
		next = models.RoomReady
	}
	if next != room.State {
		room.State = next
		s.fabric.PublishRoom(room.RoomCode, protocol.RoomUpdated(room.Snapshot()))
		s.fabric.PublishLobby(protocol.RoomInfoUpdated(room.Info()))
	}
}
