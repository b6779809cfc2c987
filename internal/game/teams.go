// internal/game/teams.go
package game

import (
	"sort"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/models"
)

const (
	minPlayersPerTeam = 2
	maxPlayersPerTeam = 5
	maxTeamImbalance  = 2
)

// TeamManager holds the pre-game team rosters. The two team identities are
// fixed; players move between them until the admin starts the game, at which
// point the rosters are snapshotted into GameState.
type TeamManager struct {
	Teams []models.Team
}

func NewTeamManager() *TeamManager {
	return &TeamManager{
		Teams: []models.Team{
			{ID: models.TeamA, Name: "Команда А", Color: "#FF6B6B", Players: []string{}},
			{ID: models.TeamB, Name: "Команда Б", Color: "#4ECDC4", Players: []string{}},
		},
	}
}

// Team returns the team with the given id, or nil.
func (tm *TeamManager) Team(id string) *models.Team {
	for i := range tm.Teams {
		if tm.Teams[i].ID == id {
			return &tm.Teams[i]
		}
	}
	return nil
}

// PlayerTeam returns the team the user currently belongs to, or nil.
func (tm *TeamManager) PlayerTeam(userID string) *models.Team {
	for i := range tm.Teams {
		for _, id := range tm.Teams[i].Players {
			if id == userID {
				return &tm.Teams[i]
			}
		}
	}
	return nil
}

// AddPlayer moves the user onto the team, removing them from any previous
// team first so membership stays single-homed.
func (tm *TeamManager) AddPlayer(userID, teamID string) error {
	team := tm.Team(teamID)
	if team == nil {
		return apperr.NotFound("team %s not found", teamID)
	}
	tm.RemovePlayer(userID)
	if len(team.Players) >= maxPlayersPerTeam {
		return apperr.BadRequest("team %s is full (max %d players)", team.Name, maxPlayersPerTeam)
	}
	team.Players = append(team.Players, userID)
	if len(team.Players) >= minPlayersPerTeam {
		team.IsReady = true
	}
	return nil
}

// RemovePlayer pulls the user off whatever team they are on, returning the
// team id they left, or "" if they were unassigned.
func (tm *TeamManager) RemovePlayer(userID string) string {
	for i := range tm.Teams {
		team := &tm.Teams[i]
		for pos, id := range team.Players {
			if id == userID {
				team.Players = append(team.Players[:pos], team.Players[pos+1:]...)
				if len(team.Players) < minPlayersPerTeam {
					team.IsReady = false
				}
				return team.ID
			}
		}
	}
	return ""
}

// AutoBalance clears the rosters and redistributes the room's players
// round-robin across the two teams. Admins keep their manual choice flow;
// only plain players are dealt in.
func (tm *TeamManager) AutoBalance(participants map[string]*models.Participant) {
	var players []string
	for id, p := range participants {
		if p.Role == models.RolePlayer {
			players = append(players, id)
		}
	}
	sort.Strings(players)

	for i := range tm.Teams {
		tm.Teams[i].Players = tm.Teams[i].Players[:0]
		tm.Teams[i].IsReady = false
	}

	for i, id := range players {
		team := &tm.Teams[i%len(tm.Teams)]
		team.Players = append(team.Players, id)
	}

	for i := range tm.Teams {
		if len(tm.Teams[i].Players) >= minPlayersPerTeam {
			tm.Teams[i].IsReady = true
		}
	}
}

// NextExplainer picks the explainer for the team's next round: the player
// after previousExplainer in roster order, wrapping; the first player when
// the team has not played yet or the previous explainer left the team.
func (tm *TeamManager) NextExplainer(teamID string, previousExplainer string) (string, bool) {
	team := tm.Team(teamID)
	if team == nil || len(team.Players) == 0 {
		return "", false
	}
	if previousExplainer == "" {
		return team.Players[0], true
	}
	for i, id := range team.Players {
		if id == previousExplainer {
			return team.Players[(i+1)%len(team.Players)], true
		}
	}
	return team.Players[0], true
}

// ResetScores zeroes every team's score.
func (tm *TeamManager) ResetScores() {
	for i := range tm.Teams {
		tm.Teams[i].Score = 0
	}
}

// ValidateForStart enforces the start preconditions: at least two non-empty
// teams, every non-empty team within [2,5], and a size gap of at most 2.
func (tm *TeamManager) ValidateForStart() error {
	active := 0
	for i := range tm.Teams {
		if len(tm.Teams[i].Players) > 0 {
			active++
		}
	}
	if active < 2 {
		return apperr.BadRequest("at least 2 teams required to start the game")
	}

	for i := range tm.Teams {
		n := len(tm.Teams[i].Players)
		if n > 0 && n < minPlayersPerTeam {
			return apperr.BadRequest("team %s needs at least %d players (currently has %d)",
				tm.Teams[i].Name, minPlayersPerTeam, n)
		}
		if n > maxPlayersPerTeam {
			return apperr.BadRequest("team %s exceeds %d players", tm.Teams[i].Name, maxPlayersPerTeam)
		}
	}

	maxSize, minSize := 0, 0
	for i := range tm.Teams {
		n := len(tm.Teams[i].Players)
		if n == 0 {
			continue
		}
		if n > maxSize {
			maxSize = n
		}
		if minSize == 0 || n < minSize {
			minSize = n
		}
	}
	if maxSize-minSize > maxTeamImbalance {
		return apperr.BadRequest("teams are too unbalanced: difference should not exceed %d players", maxTeamImbalance)
	}
	return nil
}
