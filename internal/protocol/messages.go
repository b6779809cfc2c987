// internal/protocol/messages.go
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/aliasgame/server/internal/models"
)

// The wire protocol is a closed tagged union: one JSON object per frame with
// a snake_case "type" field and payload fields alongside it. Unknown tags are
// rejected with an error envelope, never dropped silently.

// Client-initiated tags.
const (
	TypeAuthenticate    = "authenticate"
	TypePing            = "ping"
	TypeRequestRoomList = "request_room_list"
	TypeJoinRoom        = "join_room"
	TypeLeaveRoom       = "leave_room"
	TypeKickPlayer      = "kick_player"
	TypeUpdateRole      = "update_role"
	TypeJoinTeam        = "join_team"
	TypeLeaveTeam       = "leave_team"
	TypeMarkReady       = "mark_ready"
	TypeStartGame       = "start_game"
	TypeStartRound      = "start_round"
	TypeWordAction      = "word_action"
	TypeRequestNewWord  = "request_new_word"
	TypeEndRound        = "end_round"
	TypePauseGame       = "pause_game"
	TypeResumeGame      = "resume_game"
)

// Server-initiated tags.
const (
	TypeAuthenticated      = "authenticated"
	TypePong               = "pong"
	TypeError              = "error"
	TypeRoomList           = "room_list"
	TypeRoomCreated        = "room_created"
	TypeRoomDeleted        = "room_deleted"
	TypeRoomInfoUpdated    = "room_info_updated"
	TypeRoomUpdated        = "room_updated"
	TypeRoomJoined         = "room_joined"
	TypeUserJoined         = "user_joined"
	TypeUserLeft           = "user_left"
	TypeUserKicked         = "user_kicked"
	TypeRoleUpdated        = "role_updated"
	TypeTeamJoined         = "team_joined"
	TypeTeamLeft           = "team_left"
	TypeTeamReady          = "team_ready"
	TypeTeamsUpdated       = "teams_updated"
	TypeGameStarted        = "game_started"
	TypeGamePaused         = "game_paused"
	TypeGameResumed        = "game_resumed"
	TypeRoundStarted       = "round_started"
	TypeWordReceived       = "word_received"
	TypeWordResultRecorded = "word_result_recorded"
	TypeTimerUpdate        = "timer_update"
	TypeRoundEnded         = "round_ended"
	TypeGameEnded          = "game_ended"
	TypeGameStateUpdated   = "game_state_updated"
)

var clientTags = map[string]bool{
	TypeAuthenticate:    true,
	TypePing:            true,
	TypeRequestRoomList: true,
	TypeJoinRoom:        true,
	TypeLeaveRoom:       true,
	TypeKickPlayer:      true,
	TypeUpdateRole:      true,
	TypeJoinTeam:        true,
	TypeLeaveTeam:       true,
	TypeMarkReady:       true,
	TypeStartGame:       true,
	TypeStartRound:      true,
	TypeWordAction:      true,
	TypeRequestNewWord:  true,
	TypeEndRound:        true,
	TypePauseGame:       true,
	TypeResumeGame:      true,
}

// Message is one envelope. Payload fields are pointers or omitempty so a
// marshaled frame carries only the fields its tag defines.
type Message struct {
	Type string `json:"type"`

	// Client payloads.
	Token    string            `json:"token,omitempty"`
	RoomCode string            `json:"room_code,omitempty"`
	UserID   string            `json:"user_id,omitempty"`
	Role     models.UserRole   `json:"role,omitempty"`
	TeamID   string            `json:"team_id,omitempty"`
	Result   models.WordResult `json:"result,omitempty"`

	// Server payloads.
	Message       string              `json:"message,omitempty"`
	User          *models.UserInfo    `json:"user,omitempty"`
	Rooms         []models.RoomInfo   `json:"rooms,omitempty"`
	RoomInfo      *models.RoomInfo    `json:"room_info,omitempty"`
	Room          *models.Room        `json:"room,omitempty"`
	Participant   *models.Participant `json:"participant,omitempty"`
	KickedBy      string              `json:"kicked_by,omitempty"`
	Team          *models.Team        `json:"team,omitempty"`
	Teams         []models.Team       `json:"teams,omitempty"`
	Round         *models.Round       `json:"round,omitempty"`
	NextTeamID    *string             `json:"next_team_id,omitempty"`
	Word          *models.GameWord    `json:"word,omitempty"`
	ScoreChange   *int                `json:"score_change,omitempty"`
	TimeRemaining *int                `json:"time_remaining,omitempty"`
	WinnerTeam    *models.Team        `json:"winner_team,omitempty"`
	FinalScores   []models.Team       `json:"final_scores,omitempty"`
	GameState     *models.GameState   `json:"game_state,omitempty"`
}

// ParseClient decodes an inbound frame and rejects tags a client may not send.
func ParseClient(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("invalid message format: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("missing message type")
	}
	if !clientTags[m.Type] {
		return Message{}, fmt.Errorf("unknown message type: %s", m.Type)
	}
	return m, nil
}

func Error(msg string) Message {
	return Message{Type: TypeError, Message: msg}
}

func Pong() Message {
	return Message{Type: TypePong}
}

func Authenticated(u models.UserInfo) Message {
	return Message{Type: TypeAuthenticated, User: &u}
}

func RoomList(rooms []models.RoomInfo) Message {
	return Message{Type: TypeRoomList, Rooms: rooms}
}

func RoomCreated(info models.RoomInfo) Message {
	return Message{Type: TypeRoomCreated, RoomInfo: &info}
}

func RoomDeleted(code string) Message {
	return Message{Type: TypeRoomDeleted, RoomCode: code}
}

func RoomInfoUpdated(info models.RoomInfo) Message {
	return Message{Type: TypeRoomInfoUpdated, RoomInfo: &info}
}

func RoomUpdated(room *models.Room) Message {
	return Message{Type: TypeRoomUpdated, Room: room}
}

func RoomJoined(room *models.Room) Message {
	return Message{Type: TypeRoomJoined, Room: room}
}

func UserJoined(p models.Participant) Message {
	return Message{Type: TypeUserJoined, Participant: &p}
}

func UserLeft(userID string) Message {
	return Message{Type: TypeUserLeft, UserID: userID}
}

func UserKicked(userID, kickedBy string) Message {
	return Message{Type: TypeUserKicked, UserID: userID, KickedBy: kickedBy}
}

func RoleUpdated(userID string, role models.UserRole) Message {
	return Message{Type: TypeRoleUpdated, UserID: userID, Role: role}
}

func TeamJoined(team models.Team, userID string) Message {
	return Message{Type: TypeTeamJoined, Team: &team, UserID: userID}
}

func TeamLeft(teamID, userID string) Message {
	return Message{Type: TypeTeamLeft, TeamID: teamID, UserID: userID}
}

func TeamReady(teamID string) Message {
	return Message{Type: TypeTeamReady, TeamID: teamID}
}

func TeamsUpdated(teams []models.Team) Message {
	return Message{Type: TypeTeamsUpdated, Teams: teams}
}

func GameStarted() Message {
	return Message{Type: TypeGameStarted}
}

func GamePaused() Message {
	return Message{Type: TypeGamePaused}
}

func GameResumed() Message {
	return Message{Type: TypeGameResumed}
}

func RoundStarted(round models.Round) Message {
	return Message{Type: TypeRoundStarted, Round: &round}
}

func WordReceived(word models.GameWord) Message {
	return Message{Type: TypeWordReceived, Word: &word}
}

func WordResultRecorded(result models.WordResult, scoreChange int) Message {
	return Message{Type: TypeWordResultRecorded, Result: result, ScoreChange: &scoreChange}
}

func TimerUpdate(remaining int) Message {
	return Message{Type: TypeTimerUpdate, TimeRemaining: &remaining}
}

func RoundEnded(round models.Round, nextTeamID *string) Message {
	return Message{Type: TypeRoundEnded, Round: &round, NextTeamID: nextTeamID}
}

func GameEnded(winner models.Team, finalScores []models.Team) Message {
	return Message{Type: TypeGameEnded, WinnerTeam: &winner, FinalScores: finalScores}
}

func GameStateUpdated(gs *models.GameState) Message {
	return Message{Type: TypeGameStateUpdated, GameState: gs}
}
