package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// sessionCookie is the cookie the dashboard session rides in. The
// client never reads it; the injected http.Client's jar carries it.
const sessionCookie = "session"

const sessionTTL = 24 * time.Hour

// loginRequest is the body accepted by POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin validates dev credentials and sets the session cookie.
// With no configured password hash, any non-empty password is accepted;
// this server only ever stands in for the real auth endpoint.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != s.cfg.DevUser {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if s.cfg.DevPassHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.DevPassHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
	} else if req.Password == "" {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   req.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	})
	signed, err := token.SignedString([]byte(s.sessionSecret()))
	if err != nil {
		s.logger.Error("sign session", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "could not issue session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(sessionTTL),
	})
	writeJSON(w, http.StatusOK, map[string]string{"email": req.Email})
}

// sessionMiddleware enforces the session cookie on wrapped handlers.
// Every failure mode is a uniform 401; the client treats any 401 as
// "not authenticated" regardless of body.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing session")
			return
		}
		if _, err := s.verifySession(c.Value); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifySession validates the session token and returns its subject.
func (s *Server) verifySession(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.sessionSecret()), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid session claims")
	}
	return claims.Subject, nil
}

// sessionSecret returns the configured secret, generating one if empty.
func (s *Server) sessionSecret() string {
	if s.cfg.SessionSecret != "" {
		return s.cfg.SessionSecret
	}
	s.secretOnce.Do(func() {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		s.generatedSecret = base64.RawURLEncoding.EncodeToString(b)
	})
	return s.generatedSecret
}
