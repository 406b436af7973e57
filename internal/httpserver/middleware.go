package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/escrowhq/escrow/internal/auth"
)

const (
	sessionSubjectKey = "session_subject"
	sessionRoleKey    = "session_role"
	sessionNameKey    = "session_name"

	roleBuyer = "buyer"
)

// requireRole authenticates the bearer token and rejects sessions whose role
// is not in the allowed set.
func requireRole(tokens *auth.TokenIssuer, allowedRoles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid session"))
			return
		}
		allowed := false
		for _, role := range allowedRoles {
			if claims.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "role does not grant access"))
			return
		}
		ctx.Set(sessionSubjectKey, claims.Subject)
		ctx.Set(sessionRoleKey, claims.Role)
		ctx.Set(sessionNameKey, claims.Name)
		ctx.Next()
	}
}

func sessionSubject(ctx *gin.Context) string {
	return ctx.GetString(sessionSubjectKey)
}
