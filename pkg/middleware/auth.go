package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manobala/peer-chat/pkg/jwt"
	"github.com/manobala/peer-chat/pkg/response"
)

const (
	UserIDKey     = "user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	CookieName    = "token"
	QueryParam    = "token"
)

var ErrMissingToken = errors.New("missing token")

// TokenVerifier validates a token issued by the auth service.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// AuthMiddleware resolves the caller identity from the platform token.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Resolve returns the verified user id of the request. The token is read
// from the Authorization header, then the "token" cookie, then the "token"
// query parameter (browsers cannot set headers on WebSocket upgrades).
func (m *AuthMiddleware) Resolve(r *http.Request) (string, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return "", ErrMissingToken
	}
	claims, err := m.verifier.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// RequireAuth returns a Gin middleware that rejects unauthenticated calls.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.Resolve(c.Request)
		if err != nil {
			msg := "Not Authorised. Login Again"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "Session expired. Login Again"
			}
			response.Unauthorized(c, msg)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(QueryParam)
}
