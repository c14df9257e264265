package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/ports"
)

const defaultTokenTTL = 10 * 24 * time.Hour

// AuthService implements registration and login. With autoRegister enabled an
// unknown name on login creates the account on the spot.
type AuthService struct {
	repo         ports.AuthRepository
	jwtSecret    string
	tokenTTL     time.Duration
	autoRegister bool
}

func NewAuthService(repo ports.AuthRepository, jwtSecret string, tokenTTL time.Duration, autoRegister bool) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL, autoRegister: autoRegister}
}

func (s *AuthService) Register(ctx context.Context, name, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if len(password) > domain.MaxPasswordBytes {
		return nil, domain.ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.repo.Create(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, name, password string) (string, *domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	if len(password) > domain.MaxPasswordBytes {
		return "", nil, domain.ErrPasswordTooLong
	}

	user, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, domain.ErrUserNotFound) && s.autoRegister {
		user, err = s.Register(ctx, name, password)
		if errors.Is(err, domain.ErrUserExists) {
			// lost a race with a concurrent first login
			user, err = s.repo.FindByName(ctx, name)
		}
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
