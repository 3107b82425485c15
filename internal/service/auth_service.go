package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/coursiva/enroll-gateway/internal/config"
)

// Common auth errors.
var (
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// TokenType distinguishes student vs instructor tokens.
type TokenType string

const (
	TokenTypeStudent    TokenType = "student"
	TokenTypeInstructor TokenType = "instructor"
)

// Claims is the explicit per-request session object. Identity flows from
// here into the coordinators as plain arguments — nothing reads ambient
// global state.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name,omitempty"`
}

// AuthService validates platform-issued JWTs and keeps the identity cache
// in Redis — the only state the gateway persists locally.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// GenerateToken mints a JWT signed with the shared platform secret. Used
// by the mint-token dev CLI and the e2e suite; in production the platform
// issues tokens during login and the gateway only validates them.
func (s *AuthService) GenerateToken(userID uuid.UUID, name string, tokenType TokenType) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: tokenType,
		UserID:    userID,
		Name:      name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateStudentSession enforces one active session per student. The
// first token seen for a student claims the session slot (SetNX with the
// token's lifetime); a different token is rejected until the slot expires
// or an instructor resets it.
func (s *AuthService) ValidateStudentSession(ctx context.Context, studentID uuid.UUID, jti string) error {
	sessionKey := config.CacheKey.StudentSessionKey(studentID)

	claimed, err := s.rdb.SetNX(ctx, sessionKey, jti, s.cfg.JWTExpiry).Result()
	if err != nil {
		return fmt.Errorf("claim session: %w", err)
	}
	if claimed {
		return nil
	}

	stored, err := s.rdb.Get(ctx, sessionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// ResetStudentSession frees a student's session slot so a new device can
// claim it.
func (s *AuthService) ResetStudentSession(ctx context.Context, studentID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentSessionKey(studentID)).Err()
}
