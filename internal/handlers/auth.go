// internal/handlers/auth.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aliasgame/server/internal/apperr"
)

// LoginURLHandler hands the client the Twitch authorize URL.
func (s *Server) LoginURLHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": s.Auth.AuthorizeURL()})
}

// CallbackHandler finishes the OAuth dance: code in, access token + user out.
func (s *Server) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.BadRequest("invalid request body"))
		return
	}
	token, user, err := s.Auth.Login(r.Context(), body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user.Info(),
	})
}

// MeHandler returns the authenticated caller's identity.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Info())
}
