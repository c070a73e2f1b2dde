package restapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// Token issuance and validation are explicitly out of scope for this
// service (they belong to the external identity provider); tokenIssuer is
// the minimal opaque-bearer-token stand-in the façade needs so every other
// route can require one, without pulling in a JWT stack of its own.
type tokenIssuer struct {
	mu     sync.Mutex
	tokens map[string]string // token -> user_id
}

func newTokenIssuer() *tokenIssuer {
	return &tokenIssuer{tokens: make(map[string]string)}
}

func (t *tokenIssuer) issue(userID string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	t.mu.Lock()
	t.tokens[token] = userID
	t.mu.Unlock()
	return token, nil
}

func (t *tokenIssuer) userFor(token string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID, ok := t.tokens[token]
	return userID, ok
}

type loginRequest struct {
	User   string `json:"user"`
	Pass   string `json:"pass"`
	Tenant string `json:"tenant"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	if req.User == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user is required"})
	}
	token, err := s.tokens.issue(req.User)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

// requireAuth resolves the bearer token to a user id and stashes it on the
// echo context; userID(c) retrieves it downstream.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}
		token := strings.TrimPrefix(header, "Bearer ")
		userID, ok := s.tokens.userFor(token)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}
		c.Set("user_id", userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	v, _ := c.Get("user_id").(string)
	return v
}
