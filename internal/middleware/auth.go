package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/workpulse/workpulse/internal/auth"
	"github.com/workpulse/workpulse/internal/cache"
)

const (
	identityKey = "identity"
	claimsKey   = "claims"
)

// AuthMiddleware resolves the caller's token into an identity and enforces
// role capabilities on protected routes.
type AuthMiddleware struct {
	tokens     *auth.TokenManager
	caps       *auth.Capabilities
	denylist   *cache.TokenDenylist
	cookieName string
}

func NewAuthMiddleware(tokens *auth.TokenManager, caps *auth.Capabilities, denylist *cache.TokenDenylist, cookieName string) *AuthMiddleware {
	if caps == nil {
		caps = auth.NewCapabilities()
	}
	if cookieName == "" {
		cookieName = "wp_token"
	}
	return &AuthMiddleware{tokens: tokens, caps: caps, denylist: denylist, cookieName: cookieName}
}

// RequireAuth resolves and verifies the token from the cookie or the
// Authorization header. Every failure mode yields the same 401 body.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			m.unauthorized(c, "authentication required")
			return
		}

		claims, err := m.tokens.Resolve(token)
		if err != nil {
			m.unauthorized(c, "invalid or expired token")
			return
		}
		if m.denylist.Revoked(c.Request.Context(), claims.ID) {
			m.unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(identityKey, claims.Identity())
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAction gates a route on a role capability. Must run after
// RequireAuth.
func (m *AuthMiddleware) RequireAction(action auth.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			m.unauthorized(c, "authentication required")
			return
		}
		if !m.caps.Allowed(identity.Role, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func (m *AuthMiddleware) unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
	})
}

// CurrentIdentity returns the identity set by RequireAuth.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

// CurrentClaims returns the full claims, used by logout to revoke the token.
func CurrentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
