package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	contextUserID = "user_id"
	contextClaims = "claims"
)

// AuthMiddleware validates the bearer access token and requires its subject
// to be the identity of the current session. A token issued to an identity
// that has since signed out is rejected even if it has not expired.
func AuthMiddleware(tokens TokenIssuer, session Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			abortWith(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := tokens.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		current := session.Current().Identity
		if current == nil || current.ID != claims.UserID {
			abortWith(c, http.StatusUnauthorized, "Token does not belong to the current session")
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextClaims, claims)

		c.Next()
	}
}
