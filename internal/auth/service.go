// Package auth is the session boundary: it issues and validates the opaque
// bearer tokens that scope every chat call. Core packages never see raw
// credentials, only the user id resolved here.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"minichat/internal/cache"
)

// ErrUnauthorized covers every missing/invalid/expired token case. The
// caller cannot distinguish which; protected routes abort before any core
// logic runs.
var ErrUnauthorized = errors.New("authorization required")

// Service issues, validates, and revokes user authentication tokens.
// Tokens live in SQL; redis, when present, fronts the lookup.
type Service struct {
	db         *sql.DB
	tokens     *cache.Client
	tokenTTL   time.Duration
	headerName string
}

// NewService constructs an auth service with the supplied token lifetime.
// The cache client may be nil.
func NewService(db *sql.DB, tokens *cache.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:         db,
		tokens:     tokens,
		tokenTTL:   ttl,
		headerName: "Authorization",
	}
}

func tokenCacheKey(token string) string {
	return "auth:token:" + token
}

// IssueToken mints a new random token for the user and persists it.
func (s *Service) IssueToken(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", errors.New("invalid user id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, userID, now, expiresAt,
		)
		if err == nil {
			// Best effort; SQL remains the source of truth.
			_ = s.tokens.Set(ctx, tokenCacheKey(token), strconv.FormatInt(userID, 10), s.tokenTTL)
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// ValidateToken verifies the token exists and has not expired, returning
// the user id.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (int64, error) {
	if authToken == "" {
		return 0, ErrUnauthorized
	}

	if cached, err := s.tokens.Get(ctx, tokenCacheKey(authToken)); err == nil {
		if userID, perr := strconv.ParseInt(cached, 10, 64); perr == nil && userID > 0 {
			return userID, nil
		}
	}

	var userID int64
	var expires time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM user_tokens WHERE token = ?`, authToken,
	).Scan(&userID, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnauthorized
		}
		return 0, fmt.Errorf("lookup token: %w", err)
	}
	remaining := time.Until(expires)
	if remaining <= 0 {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken)
		_ = s.tokens.Del(ctx, tokenCacheKey(authToken))
		return 0, ErrUnauthorized
	}
	_ = s.tokens.Set(ctx, tokenCacheKey(authToken), strconv.FormatInt(userID, 10), remaining)
	return userID, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return s.tokens.Del(ctx, tokenCacheKey(authToken))
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
