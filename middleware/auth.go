package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/utils"
)

const (
	// ContextUserIDKey holds the authenticated user id (uint).
	ContextUserIDKey = "user_id"
	// ContextEmailKey holds the authenticated email.
	ContextEmailKey = "email"
	// ContextTokenKey holds the raw bearer token, used by logout.
	ContextTokenKey = "token"
)

// bearerToken reads the token from the Authorization header, or from ?token= for
// websocket upgrades where browsers cannot set headers.
func bearerToken(ctx *gin.Context) (string, int, string) {
	header := ctx.GetHeader("Authorization")
	if header == "" {
		if t := strings.TrimSpace(ctx.Query("token")); t != "" && ctx.IsWebsocket() {
			return t, 0, ""
		}
		return "", 40101, "authorization header missing"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}

func authenticate(ctx *gin.Context) (int, string) {
	token, code, msg := bearerToken(ctx)
	if code != 0 {
		return code, msg
	}
	if utils.IsTokenBlacklisted(token) {
		return 40104, "token revoked"
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return 40105, "invalid token"
	}
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextEmailKey, claims.Email)
	ctx.Set(ContextTokenKey, token)
	return 0, ""
}

// AuthRequired rejects requests without a valid, unrevoked JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if code, msg := authenticate(ctx); code != 0 {
			utils.Abort(ctx, http.StatusUnauthorized, code, msg)
			return
		}
		ctx.Next()
	}
}

// AuthOptional sets the user when a valid token is present and lets anonymous requests through.
func AuthOptional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" {
			_, _ = authenticate(ctx)
		}
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired. Admins are listed by email in config.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !config.Get().IsAdminEmail(ctx.GetString(ContextEmailKey)) {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin only")
			return
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
