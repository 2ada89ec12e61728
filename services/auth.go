package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/utils"
)

// AuthService is the credential store: it owns identities and turns a successful
// password check into an access token.
type AuthService struct {
	db     *gorm.DB
	tokens *utils.TokenService

	dummyOnce sync.Once
	dummyHash string
}

// LoginResult is what a successful Authenticate hands back to the caller.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenService) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

// dummy returns a bcrypt hash compared against when the username is unknown, so both
// failure paths cost one bcrypt comparison.
func (a *AuthService) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := utils.HashPassword(uuid.NewString())
		if err != nil {
			utils.Sugar.Errorf("dummy hash: %v", err)
		}
		a.dummyHash = h
	})
	return a.dummyHash
}

// Authenticate verifies username/password and issues a token. Unknown users, inactive
// users and wrong passwords are indistinguishable to the caller.
func (a *AuthService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		utils.CheckPassword(a.dummy(), password)
		return nil, ErrInvalidCredentials
	}

	if !utils.CheckPassword(user.PasswordHash, password) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// UserByID resolves the identity behind a verified token.
func (a *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser provisions a new identity. It is never reachable from the HTTP API.
func (a *AuthService) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, Required("username")
	}
	if password == "" {
		return nil, Required("password")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return nil, Invalid("password", "must be at most 72 bytes")
		}
		return nil, err
	}

	db := a.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}

	user := models.User{Username: username, PasswordHash: hash, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the bootstrap identity when it does not exist yet. An existing
// identity is left untouched, including its password.
func (a *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := a.CreateUser(ctx, username, password)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetPassword replaces the password hash of an existing identity.
func (a *AuthService) SetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return Required("password")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return Invalid("password", "must be at most 72 bytes")
		}
		return err
	}
	res := a.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", strings.TrimSpace(username)).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
