package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// UserResolver loads the account a verified token was issued to.
type UserResolver interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired ensures the request carries a valid bearer token whose user still
// exists and is active.
func AuthRequired(tokens *utils.TokenService, users UserResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Header("WWW-Authenticate", "Bearer")
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			ctx.Header("WWW-Authenticate", "Bearer")
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			ctx.Header("WWW-Authenticate", "Bearer")
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			ctx.Header("WWW-Authenticate", "Bearer")
			if errors.Is(err, utils.ErrTokenExpired) {
				utils.Abort(ctx, http.StatusUnauthorized, 40104, "token expired")
				return
			}
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		user, err := users.UserByID(ctx.Request.Context(), claims.UserID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			utils.Sugar.Errorw("resolve token user failed", "user_id", claims.UserID, "error", err)
			utils.Abort(ctx, http.StatusInternalServerError, 50000, "internal server error")
			return
		}
		if user == nil || !user.IsActive {
			ctx.Header("WWW-Authenticate", "Bearer")
			utils.Abort(ctx, http.StatusUnauthorized, 40107, "user not found or inactive")
			return
		}

		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Next()
	}
}
