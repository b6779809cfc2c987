// internal/session/service_test.go
package session

import (
	"fmt"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliasgame/server/internal/broadcast"
	"github.com/aliasgame/server/internal/game"
	"github.com/aliasgame/server/internal/models"
	"github.com/aliasgame/server/internal/protocol"
)

func testUser(id string) *models.User {
	return &models.User{ID: id, Username: "name-" + id, DisplayName: "Name " + id}
}

func newTestService(t *testing.T) (*Service, *broadcast.Fabric) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	words := make([]models.GameWord, 200)
	for i := range words {
		words[i] = models.GameWord{Word: fmt.Sprintf("слово-%03d", i), Difficulty: models.DifficultyMedium}
	}
	corpus := game.NewMemoryCorpus(words, nil)

	fabric := broadcast.NewFabric(log)
	svc := NewService(NewRegistry(), fabric, corpus, "uk", nil, log)
	return svc, fabric
}

// drain collects every envelope currently buffered on the subscription.
func drain(sub *broadcast.Subscription) []protocol.Message {
	var out []protocol.Message
	for {
		select {
		case m, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

var roomCodeRe = regexp.MustCompile(`^[0-9A-Z]{6}$`)

func TestCreateRoomBroadcastsToLobby(t *testing.T) {
	svc, fabric := newTestService(t)
	lobby := fabric.SubscribeLobby()
	defer lobby.Close()

	room, err := svc.CreateRoom(testUser("u1"), "Котики", 4)
	require.NoError(t, err)

	assert.Regexp(t, roomCodeRe, room.RoomCode)
	assert.Equal(t, "u1", room.AdminID)
	assert.Equal(t, models.RoomWaiting, room.State)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, models.RoleAdmin, room.Participants["u1"].Role)

	msgs := drain(lobby)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeRoomCreated, msgs[0].Type)
	require.NotNil(t, msgs[0].RoomInfo)
	assert.Equal(t, room.RoomCode, msgs[0].RoomInfo.RoomCode)
	assert.Equal(t, 1, msgs[0].RoomInfo.CurrentPlayers)
	assert.Equal(t, "name-u1", msgs[0].RoomInfo.AdminUsername)
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRoom(testUser("u1"), "room", 3)
	assert.Error(t, err, "below minimum capacity")
	_, err = svc.CreateRoom(testUser("u1"), "room", 11)
	assert.Error(t, err, "above maximum capacity")
	_, err = svc.CreateRoom(testUser("u1"), "", 4)
	assert.Error(t, err, "empty name")
}

func TestJoinFullRoomRejectedButMemberReconnects(t *testing.T) {
	svc, _ := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "full house", 4)
	require.NoError(t, err)

	for _, id := range []string{"u2", "u3", "u4"} {
		_, err := svc.Join(testUser(id), room.RoomCode)
		require.NoError(t, err)
	}

	_, err = svc.Join(testUser("u5"), room.RoomCode)
	require.Error(t, err, "fifth participant exceeds max_players")

	// An existing participant re-joins fine even at capacity.
	snap, err := svc.Join(testUser("u2"), room.RoomCode)
	require.NoError(t, err)
	assert.Len(t, snap.Participants, 4)
	assert.True(t, snap.Participants["u2"].IsConnected)
}

func TestJoinUnknownRoom(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Join(testUser("u1"), "NOPE00")
	assert.Error(t, err)
}

func TestJoinTouchesUpdatedAt(t *testing.T) {
	svc, _ := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "clock", 4)
	require.NoError(t, err)
	created := room.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	snap, err := svc.Join(testUser("u2"), room.RoomCode)
	require.NoError(t, err)
	assert.True(t, snap.UpdatedAt.After(created), "updated_at advances on mutation")
}

func TestAdminSuccessionOrder(t *testing.T) {
	svc, fabric := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "succession", 4)
	require.NoError(t, err)
	_, err = svc.Join(testUser("u2"), room.RoomCode)
	require.NoError(t, err)

	sub := fabric.SubscribeRoom(room.RoomCode)
	defer sub.Close()

	require.NoError(t, svc.Leave("u1", room.RoomCode))

	msgs := drain(sub)
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, protocol.TypeUserLeft, msgs[0].Type)
	assert.Equal(t, "u1", msgs[0].UserID)
	assert.Equal(t, protocol.TypeRoleUpdated, msgs[1].Type)
	assert.Equal(t, "u2", msgs[1].UserID)
	assert.Equal(t, models.RoleAdmin, msgs[1].Role)
	assert.Equal(t, protocol.TypeRoomUpdated, msgs[2].Type)
	require.NotNil(t, msgs[2].Room)
	assert.Equal(t, "u2", msgs[2].Room.AdminID)
	assert.Len(t, msgs[2].Room.Participants, 1)
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	svc, fabric := newTestService(t)
	lobby := fabric.SubscribeLobby()
	defer lobby.Close()

	room, err := svc.CreateRoom(testUser("u1"), "short lived", 4)
	require.NoError(t, err)
	drain(lobby)

	require.NoError(t, svc.Leave("u1", room.RoomCode))

	assert.Equal(t, 0, svc.Registry().Len())
	msgs := drain(lobby)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeRoomDeleted, msgs[0].Type)
	assert.Equal(t, room.RoomCode, msgs[0].RoomCode)

	_, err = svc.GetRoom(room.RoomCode)
	assert.Error(t, err)
}

func TestKickRules(t *testing.T) {
	svc, fabric := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "bouncer", 4)
	require.NoError(t, err)
	_, err = svc.Join(testUser("u2"), room.RoomCode)
	require.NoError(t, err)

	assert.Error(t, svc.Kick("u2", room.RoomCode, "u1"), "non-admin cannot kick")
	assert.Error(t, svc.Kick("u1", room.RoomCode, "u1"), "admin cannot kick self")
	assert.Error(t, svc.Kick("u1", room.RoomCode, "ghost"), "unknown target")

	sub := fabric.SubscribeRoom(room.RoomCode)
	defer sub.Close()
	require.NoError(t, svc.Kick("u1", room.RoomCode, "u2"))

	msgs := drain(sub)
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, protocol.TypeUserKicked, msgs[0].Type)
	assert.Equal(t, "u2", msgs[0].UserID)
	assert.Equal(t, "u1", msgs[0].KickedBy)
	assert.Equal(t, protocol.TypeRoomUpdated, msgs[1].Type)
}

func TestDisconnectIsSoft(t *testing.T) {
	svc, _ := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "flaky wifi", 4)
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect("u1", room.RoomCode))

	snap, err := svc.GetRoom(room.RoomCode)
	require.NoError(t, err)
	require.Len(t, snap.Participants, 1)
	assert.False(t, snap.Participants["u1"].IsConnected)
}

func TestUpdateRoleTransfersAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "handover", 4)
	require.NoError(t, err)
	_, err = svc.Join(testUser("u2"), room.RoomCode)
	require.NoError(t, err)

	assert.Error(t, svc.UpdateRole("u2", room.RoomCode, "u1", models.RolePlayer), "non-admin cannot change roles")

	require.NoError(t, svc.UpdateRole("u1", room.RoomCode, "u2", models.RoleAdmin))
	snap, err := svc.GetRoom(room.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, "u2", snap.AdminID)
	assert.Equal(t, models.RoleAdmin, snap.Participants["u2"].Role)
	assert.Equal(t, models.RolePlayer, snap.Participants["u1"].Role)
}

func TestReaperRemovesAbandonedRooms(t *testing.T) {
	svc, fabric := newTestService(t)
	lobby := fabric.SubscribeLobby()
	defer lobby.Close()

	room, err := svc.CreateRoom(testUser("u1"), "abandoned", 4)
	require.NoError(t, err)
	keep, err := svc.CreateRoom(testUser("u2"), "active", 4)
	require.NoError(t, err)
	drain(lobby)

	require.NoError(t, svc.Disconnect("u1", room.RoomCode))
	require.NoError(t, svc.Disconnect("u2", keep.RoomCode))

	// Age only the first room past the threshold.
	require.NoError(t, svc.Registry().Mutate(room.RoomCode, func(r *models.Room) error {
		r.UpdatedAt = time.Now().UTC().Add(-10 * time.Minute)
		return nil
	}))

	svc.reapOnce(5 * time.Minute)

	assert.Equal(t, 1, svc.Registry().Len())
	_, err = svc.GetRoom(room.RoomCode)
	assert.Error(t, err)
	_, err = svc.GetRoom(keep.RoomCode)
	assert.NoError(t, err)

	msgs := drain(lobby)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TypeRoomDeleted, msgs[0].Type)
	assert.Equal(t, room.RoomCode, msgs[0].RoomCode)
}

func TestReaperSparesConnectedRooms(t *testing.T) {
	svc, _ := newTestService(t)
	room, err := svc.CreateRoom(testUser("u1"), "still here", 4)
	require.NoError(t, err)

	require.NoError(t, svc.Registry().Mutate(room.RoomCode, func(r *models.Room) error {
		r.UpdatedAt = time.Now().UTC().Add(-10 * time.Minute)
		return nil
	}))

	svc.reapOnce(5 * time.Minute)
	assert.Equal(t, 1, svc.Registry().Len(), "a connected participant blocks reaping")
}

func TestRoomInfosSorted(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 5; i++ {
		_, err := svc.CreateRoom(testUser(fmt.Sprintf("u%d", i)), fmt.Sprintf("room %d", i), 4)
		require.NoError(t, err)
	}
	infos := svc.RoomInfos()
	require.Len(t, infos, 5)
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].RoomCode, infos[i].RoomCode)
	}
}
