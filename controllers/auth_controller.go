package controllers

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pithakchhorn/portfolio-api/middleware"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

// AuthController handles login and identity lookup for the admin account.
type AuthController struct {
	auth  *services.AuthService
	guard *utils.LoginGuard
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *services.AuthService, guard *utils.LoginGuard) *AuthController {
	return &AuthController{auth: auth, guard: guard}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login exchanges form or JSON credentials for a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if a.guard.Blocked(ctx.Request.Context(), ip) {
		middleware.LoginAttemptsTotal.WithLabelValues("blocked").Inc()
		ctx.Header("Retry-After", "60")
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed login attempts, try again later")
		return
	}

	var req loginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "username and password are required")
		return
	}

	res, err := a.auth.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			middleware.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			a.guard.RecordFailure(ctx.Request.Context(), ip)
			utils.Sugar.Infow("login failed", "ip", ip)
		}
		respondError(ctx, err)
		return
	}

	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()
	a.guard.Reset(ctx.Request.Context(), ip)
	utils.Success(ctx, gin.H{
		"access_token": res.Token,
		"token_type":   "bearer",
		"expires_in":   int64(math.Ceil(time.Until(res.ExpiresAt).Seconds())),
	})
}

// Me returns the identity behind the bearer token.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	user, err := a.auth.UserByID(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
