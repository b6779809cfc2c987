// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/broadcast"
	"github.com/aliasgame/server/internal/middleware"
	"github.com/aliasgame/server/internal/models"
	"github.com/aliasgame/server/internal/protocol"
)

// wsConn is the per-socket state, owned exclusively by its connection loop.
// The loop is the sole writer to the socket.
type wsConn struct {
	sock *websocket.Conn

	user     *models.User
	roomCode string
	roomSub  *broadcast.Subscription
	lobbySub *broadcast.Subscription
}

// WSHandler upgrades the connection and runs the connection loop until the
// socket dies. On exit a room-bound connection is soft-disconnected so the
// seat survives for reconnection.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &wsConn{sock: sock}
	loopErr := s.runConn(ctx, conn)

	if conn.roomCode != "" && conn.user != nil {
		if err := s.Session.Disconnect(conn.user.ID, conn.roomCode); err != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{
				"user": conn.user.ID,
				"room": conn.roomCode,
			}).Warn("Soft disconnect failed")
		}
	}
	conn.roomSub.Close()
	conn.lobbySub.Close()

	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, loopErr)
	sock.Close(websocket.StatusNormalClosure, "bye")
}

// runConn multiplexes the three input sources: inbound frames, the room
// subscription, and the lobby subscription.
func (s *Server) runConn(ctx context.Context, conn *wsConn) error {
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.sock.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var roomC, lobbyC chan protocol.Message
		if conn.roomSub != nil {
			roomC = conn.roomSub.C
		}
		if conn.lobbySub != nil {
			lobbyC = conn.lobbySub.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case data, ok := <-frames:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if err := s.dispatch(ctx, conn, data); err != nil {
				return err
			}

		case msg, ok := <-roomC:
			if !ok {
				// Overflowed or room torn down. The user is still seated in
				// the room server-side, so only the subscription is dropped;
				// the client re-subscribes via join_room.
				conn.roomSub = nil
				continue
			}
			if err := s.forwardRoomMsg(ctx, conn, msg); err != nil {
				return err
			}

		case msg, ok := <-lobbyC:
			if !ok {
				conn.lobbySub = nil
				continue
			}
			if err := conn.write(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (c *wsConn) write(ctx context.Context, msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.sock.Write(ctx, websocket.MessageText, data)
}

// forwardRoomMsg relays a room envelope, layering in the per-connection
// views: the explainer additionally receives the first word of a starting
// round, and a kicked user is detached from the room.
func (s *Server) forwardRoomMsg(ctx context.Context, conn *wsConn, msg protocol.Message) error {
	if err := conn.write(ctx, msg); err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeRoundStarted:
		if msg.Round != nil && conn.user != nil &&
			msg.Round.ExplainerID == conn.user.ID && len(msg.Round.Words) > 0 {
			return conn.write(ctx, protocol.WordReceived(msg.Round.Words[0]))
		}
	case protocol.TypeUserKicked:
		if conn.user != nil && msg.UserID == conn.user.ID {
			conn.roomSub.Close()
			conn.roomSub = nil
			conn.roomCode = ""
		}
	}
	return nil
}

// dispatch parses one inbound frame and routes it. Operation failures are
// reported to this socket only; they never end the connection.
func (s *Server) dispatch(ctx context.Context, conn *wsConn, data []byte) error {
	msg, err := protocol.ParseClient(data)
	if err != nil {
		return conn.write(ctx, protocol.Error(err.Error()))
	}

	if msg.Type == protocol.TypePing {
		return conn.write(ctx, protocol.Pong())
	}

	if conn.user == nil {
		if msg.Type != protocol.TypeAuthenticate {
			return conn.write(ctx, protocol.Error("authentication required"))
		}
		user, err := s.Auth.Verify(ctx, msg.Token)
		if err != nil {
			return conn.write(ctx, protocol.Error(err.Error()))
		}
		conn.user = user
		conn.lobbySub = s.Session.Fabric().SubscribeLobby()
		s.Log.WithField("user", user.ID).Info("WebSocket authenticated")
		return conn.write(ctx, protocol.Authenticated(user.Info()))
	}

	if opErr := s.handleOp(ctx, conn, msg); opErr != nil {
		return conn.write(ctx, protocol.Error(opErr.Error()))
	}
	return nil
}

// handleOp runs one authenticated operation. Unicast replies are written
// here; broadcasts flow back through the subscriptions.
func (s *Server) handleOp(ctx context.Context, conn *wsConn, msg protocol.Message) error {
	userID := conn.user.ID

	switch msg.Type {
	case protocol.TypeAuthenticate:
		// Re-authentication is a no-op; the socket already has its user.
		return conn.write(ctx, protocol.Authenticated(conn.user.Info()))

	case protocol.TypeRequestRoomList:
		if conn.lobbySub == nil {
			conn.lobbySub = s.Session.Fabric().SubscribeLobby()
		}
		return conn.write(ctx, protocol.RoomList(s.Session.RoomInfos()))

	case protocol.TypeJoinRoom:
		sub := s.Session.Fabric().SubscribeRoom(msg.RoomCode)
		room, err := s.Session.Join(conn.user, msg.RoomCode)
		if err != nil {
			sub.Close()
			return err
		}
		conn.roomSub.Close()
		conn.roomSub = sub
		conn.roomCode = msg.RoomCode
		return conn.write(ctx, protocol.RoomJoined(room))

	case protocol.TypeLeaveRoom:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		if err := s.Session.Leave(userID, conn.roomCode); err != nil {
			return err
		}
		conn.roomSub.Close()
		conn.roomSub = nil
		conn.roomCode = ""
		return nil

	case protocol.TypeKickPlayer:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.Kick(userID, conn.roomCode, msg.UserID)

	case protocol.TypeUpdateRole:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.UpdateRole(userID, conn.roomCode, msg.UserID, msg.Role)

	case protocol.TypeJoinTeam:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.JoinTeam(userID, conn.roomCode, msg.TeamID)

	case protocol.TypeLeaveTeam:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.LeaveTeam(userID, conn.roomCode)

	case protocol.TypeMarkReady:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.MarkReady(userID, conn.roomCode)

	case protocol.TypeStartGame:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.StartGame(userID, conn.roomCode)

	case protocol.TypeStartRound:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.StartRound(ctx, userID, conn.roomCode)

	case protocol.TypeWordAction:
		return s.wordAction(ctx, conn, msg.Result)

	case protocol.TypeRequestNewWord:
		return s.wordAction(ctx, conn, models.WordSkipped)

	case protocol.TypeEndRound:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.EndRound(userID, conn.roomCode)

	case protocol.TypePauseGame:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.PauseGame(userID, conn.roomCode)

	case protocol.TypeResumeGame:
		if conn.roomCode == "" {
			return errNotInRoom()
		}
		return s.Session.ResumeGame(userID, conn.roomCode)
	}
	return conn.write(ctx, protocol.Error("unknown message type: "+msg.Type))
}

func errNotInRoom() error {
	return apperr.BadRequest("you are not in a room")
}

func (s *Server) wordAction(ctx context.Context, conn *wsConn, result models.WordResult) error {
	if conn.roomCode == "" {
		return errNotInRoom()
	}
	next, err := s.Session.WordAction(conn.user.ID, conn.roomCode, result)
	if err != nil {
		return err
	}
	if next != nil {
		return conn.write(ctx, protocol.WordReceived(*next))
	}
	return nil
}
