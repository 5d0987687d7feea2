package fakeis

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const tokenLifetime = time.Hour

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func oauthFail(w http.ResponseWriter, r *http.Request, status int, code, description string) {
	render.Status(r, status)
	render.JSON(w, r, oauthError{Error: code, Description: description})
}

// token implements the password grant for clients whose registration is
// linked to a service provider and still has its secret.
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthFail(w, r, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if grant := r.PostForm.Get("grant_type"); grant != "password" {
		oauthFail(w, r, http.StatusBadRequest, "unsupported_grant_type", "Unsupported grant_type value")
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		oauthFail(w, r, http.StatusUnauthorized, "invalid_client", "Client Authentication failed.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.oauthApps[clientID]
	if !ok || app.Secret == "" || app.Secret != clientSecret || !s.linkedLocked(clientID) {
		oauthFail(w, r, http.StatusUnauthorized, "invalid_client", "Client credentials are invalid.")
		return
	}
	if !strings.Contains(app.GrantTypes, "password") {
		oauthFail(w, r, http.StatusBadRequest, "unauthorized_client", "The authenticated client is not authorized to use this authorization grant type")
		return
	}

	username := r.PostForm.Get("username")
	user, ok := s.users[username]
	if !ok || !user.checkPassword(r.PostForm.Get("password")) {
		oauthFail(w, r, http.StatusBadRequest, "invalid_grant", "Authentication failed for "+username)
		return
	}

	scope := r.PostForm.Get("scope")
	if scope == "" {
		scope = "default"
	}

	access := uuid.NewString()
	if s.tokenFormat == TokenJWT {
		claims := map[string]interface{}{
			"sub":   user.Name,
			"aud":   clientID,
			"iss":   "https://localhost:9443/oauth2/token",
			"scope": scope,
			"jti":   uuid.NewString(),
		}
		jwtauth.SetIssuedNow(claims)
		jwtauth.SetExpiryIn(claims, tokenLifetime)
		_, signed, err := s.jwtAuth.Encode(claims)
		if err != nil {
			oauthFail(w, r, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		access = signed
	}

	render.JSON(w, r, tokenResponse{
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		TokenType:    "Bearer",
		ExpiresIn:    int(tokenLifetime.Seconds()),
		Scope:        scope,
	})
}

func (s *Server) linkedLocked(clientID string) bool {
	for _, sp := range s.providers {
		if sp.OAuthKey == clientID {
			return true
		}
	}
	return false
}
