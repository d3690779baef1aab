package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "incorrect email or password"

// Service manages dashboard user accounts and their access tokens.
type Service struct {
	db          *gorm.DB
	secretKey   []byte
	tokenExpiry time.Duration
}

func NewService(db *gorm.DB, authCfg models.AuthConfig) *Service {
	return &Service{
		db:          db,
		secretKey:   []byte(authCfg.SecretKey),
		tokenExpiry: authCfg.Expiry(),
	}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.User{})
}

// Signup creates a new account. A duplicate email fails with a conflict
// error before any insert is attempted.
func (s *Service) Signup(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required", nil)
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, models.NewConflictError("an account with this email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		HashedPassword: string(hashed),
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and issues a signed access token. Unknown
// email and wrong password fail with the identical error.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", models.NewAuthenticationError(invalidCredentialsMessage)
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return "", models.NewAuthenticationError(invalidCredentialsMessage)
	}

	return s.issueToken(&user)
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.Email,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses a bearer token and resolves it to a live user.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewAuthenticationError("could not validate credentials")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewAuthenticationError("could not validate credentials")
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return nil, models.NewAuthenticationError("could not validate credentials")
	}

	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, models.NewAuthenticationError("could not validate credentials")
	}

	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// Delete removes an account and everything under it: projects, their
// sentinel keys and all usage events, in one transaction.
func (s *Service) Delete(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projectIDs []uint
		if err := tx.Model(&models.Project{}).Where("owner_id = ?", userID).Pluck("id", &projectIDs).Error; err != nil {
			return fmt.Errorf("failed to list owned projects: %w", err)
		}

		if len(projectIDs) > 0 {
			var keyIDs []uint
			if err := tx.Model(&models.SentinelKey{}).Where("project_id IN ?", projectIDs).Pluck("id", &keyIDs).Error; err != nil {
				return fmt.Errorf("failed to list sentinel keys: %w", err)
			}

			if len(keyIDs) > 0 {
				if err := tx.Where("sentinel_key_id IN ?", keyIDs).Delete(&models.UsageEvent{}).Error; err != nil {
					return fmt.Errorf("failed to delete usage events: %w", err)
				}
			}

			if err := tx.Where("project_id IN ?", projectIDs).Delete(&models.SentinelKey{}).Error; err != nil {
				return fmt.Errorf("failed to delete sentinel keys: %w", err)
			}

			if err := tx.Where("owner_id = ?", userID).Delete(&models.Project{}).Error; err != nil {
				return fmt.Errorf("failed to delete projects: %w", err)
			}
		}

		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		return nil
	})
}
