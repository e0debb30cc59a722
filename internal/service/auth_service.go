package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/mtq-judge/internal/competition"
	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/model"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// Claims extends JWT standard claims with the judge identity.
type Claims struct {
	jwt.RegisteredClaims
	JudgeID int    `json:"judge_id"`
	Name    string `json:"name"`
}

// JudgeSession is what Redis keeps for a logged-in judge. RemoteToken is the
// competition API credential used on the judge's behalf.
type JudgeSession struct {
	JTI         string      `json:"jti"`
	RemoteToken string      `json:"remote_token"`
	Judge       model.Judge `json:"judge"`
}

// JudgeAuthenticator verifies judge credentials against the competition API.
type JudgeAuthenticator interface {
	Login(ctx context.Context, username, password string) (*competition.LoginResult, error)
}

// AuthService handles judge login, JWT and session management.
type AuthService struct {
	cfg    *config.Config
	rdb    *redis.Client
	remote JudgeAuthenticator
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, remote JudgeAuthenticator) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, remote: remote}
}

// Login authenticates the judge with the competition API and opens a
// session. A previous session of the same judge is replaced, which
// invalidates its token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.JudgeLoginResponse, error) {
	res, err := s.remote.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, competition.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("remote login: %w", err)
	}

	jti := uuid.New().String()
	signed, err := s.sign(res.Judge, jti, time.Now())
	if err != nil {
		return nil, err
	}

	sess := JudgeSession{JTI: jti, RemoteToken: res.Token, Judge: res.Judge}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	// Store session in Redis with same expiry as JWT.
	key := config.CacheKey.JudgeSessionKey(res.Judge.ID)
	if err := s.rdb.Set(ctx, key, raw, s.cfg.JWTExpiry).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &model.JudgeLoginResponse{Token: signed, Judge: res.Judge}, nil
}

func (s *AuthService) sign(judge model.Judge, jti string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(judge.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		JudgeID: judge.ID,
		Name:    judge.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
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
	if !ok || !token.Valid || claims.JudgeID <= 0 {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateSession checks that jti is the judge's active session and returns it.
func (s *AuthService) ValidateSession(ctx context.Context, judgeID int, jti string) (*JudgeSession, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.JudgeSessionKey(judgeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("check session: %w", err)
	}

	var sess JudgeSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.JTI != jti {
		return nil, ErrSessionInvalidated
	}
	return &sess, nil
}

// Logout removes the judge's session; the token stops working immediately.
func (s *AuthService) Logout(ctx context.Context, judgeID int) error {
	return s.rdb.Del(ctx, config.CacheKey.JudgeSessionKey(judgeID)).Err()
}
