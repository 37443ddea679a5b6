package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smart_office/internal/config"
	"smart_office/internal/models"
	"smart_office/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// AuthService handles operator sign-up and bearer tokens for the dashboard API.
type AuthService struct {
	operators  repository.OperatorRepo
	signingKey []byte
	tokenTTL   time.Duration
	admins     map[string]bool
	now        func() time.Time
}

// NewAuthService builds the service from the auth config. Usernames listed in
// cfg.Admins sign up as ADMIN, everyone else as USER.
func NewAuthService(repo repository.OperatorRepo, cfg config.AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	admins := make(map[string]bool, len(cfg.Admins))
	for _, name := range cfg.Admins {
		if name = strings.TrimSpace(name); name != "" {
			admins[name] = true
		}
	}
	return &AuthService{
		operators:  repo,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   ttl,
		admins:     admins,
		now:        time.Now,
	}
}

// SignUp hashes password and creates a new operator.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Operator{}, errors.New("username is empty")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.Operator{}, fmt.Errorf("invalid password: %w", err)
	}
	op := models.Operator{
		Username:     username,
		PasswordHash: hash,
		Role:         s.roleFor(username),
		CreatedAt:    s.now().UTC(),
	}
	if op.ID, err = s.operators.Create(ctx, op); err != nil {
		return models.Operator{}, err
	}
	return op, nil
}

func (s *AuthService) roleFor(username string) models.Role {
	if s.admins[username] {
		return models.RoleAdmin
	}
	return models.RoleUser
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	OperatorID int         `json:"operator_id"`
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
}

// GenerateToken validates credentials and returns JWT
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	op, err := s.operators.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrUserNotFound
	}

	if err := verifyPassword(op.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	return s.issueToken(models.Principal{OperatorID: op.ID, Username: op.Username, Role: op.Role})
}

// ParseToken verifies a bearer token and returns who it was issued to.
func (s *AuthService) ParseToken(accessToken string) (models.Principal, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return models.Principal{}, ErrInvalidToken
	}

	return models.Principal{OperatorID: claims.OperatorID, Username: claims.Username, Role: claims.Role}, nil
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// issueToken signs a JWT for p.
func (s *AuthService) issueToken(p models.Principal) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(p.OperatorID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: p.OperatorID,
		Username:   p.Username,
		Role:       p.Role,
	})
	return token.SignedString(s.signingKey)
}
