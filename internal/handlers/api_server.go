// internal/handlers/api_server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/apperr"
	"github.com/aliasgame/server/internal/middleware"
	"github.com/aliasgame/server/internal/models"
	"github.com/aliasgame/server/internal/session"
)

// AuthProvider is the identity surface the handlers consume. Satisfied by
// auth.Service; tests substitute a stub.
type AuthProvider interface {
	Verify(ctx context.Context, token string) (*models.User, error)
	AuthorizeURL() string
	Login(ctx context.Context, code string) (string, *models.User, error)
}

// Server wires the HTTP and websocket surface onto the session service.
type Server struct {
	Auth    AuthProvider
	Session *session.Service
	Log     *logrus.Logger
}

func NewServer(auth AuthProvider, svc *session.Service, log *logrus.Logger) *Server {
	return &Server{Auth: auth, Session: svc, Log: log}
}

// Routes builds the full route table. Every route carries the logging
// middleware and permissive CORS.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.HealthHandler)

	mux.HandleFunc("GET /auth/login", s.LoginURLHandler)
	mux.HandleFunc("POST /auth/callback", s.CallbackHandler)
	mux.HandleFunc("GET /auth/me", s.MeHandler)

	mux.HandleFunc("GET /rooms", s.ListRoomsHandler)
	mux.HandleFunc("POST /rooms", s.CreateRoomHandler)
	mux.HandleFunc("GET /rooms/{code}", s.GetRoomHandler)
	mux.HandleFunc("GET /rooms/{code}/stats", s.GameStatsHandler)
	mux.HandleFunc("POST /rooms/{code}/join", s.JoinRoomHandler)
	mux.HandleFunc("POST /rooms/{code}/leave", s.LeaveRoomHandler)
	mux.HandleFunc("POST /rooms/{code}/kick/{player_id}", s.KickPlayerHandler)

	mux.HandleFunc("/ws", s.WSHandler)

	return middleware.LogMiddleware(s.Log)(cors(mux))
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cors mirrors the permissive policy of the original deployment: the game is
// served from arbitrary origins during events.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the request's bearer token to a user.
func (s *Server) authenticate(r *http.Request) (*models.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperr.Unauthenticated("missing Authorization header")
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return nil, apperr.Unauthenticated("malformed Authorization header")
	}
	return s.Auth.Verify(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{"error": err.Error()})
}
