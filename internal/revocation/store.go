package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable reports a counter store failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrRefreshNotTracked reports a refresh token id that is unknown or already revoked.
	ErrRefreshNotTracked = errors.New("refresh token not tracked")
)

// minEntryTTL keeps a blacklist entry alive past clock drift between processes.
const minEntryTTL = time.Second

// Store reads and writes revocation state.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	leeway time.Duration
	now    func() time.Time
}

// NewStore creates a Store. leeway is the verification clock-skew allowance; blacklist
// entries outlive the token expiry by at least that much.
func NewStore(redisClient redis.UniversalClient, prefix string, leeway time.Duration) *Store {
	if prefix == "" {
		prefix = "gk"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		leeway: leeway,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock used to compute entry lifetimes.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// EntryTTL is the blacklist lifetime for a token expiring at expiresAt.
func (s *Store) EntryTTL(now, expiresAt time.Time) time.Duration {
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining + s.leeway + minEntryTTL
}

// Blacklist inserts an entry for token that lasts at least until its expiry.
func (s *Store) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := s.EntryTTL(s.now(), expiresAt)
	if err := s.redis.Set(ctx, s.blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsBlacklisted reports whether token has a live blacklist entry.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// TrackRefresh records a freshly issued refresh token.
func (s *Store) TrackRefresh(ctx context.Context, tokenID, subject string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("refresh token id required")
	}
	if err := s.redis.Set(ctx, s.refreshKey(tokenID), subject, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh verifies that tokenID is live and belongs to subject.
func (s *Store) CheckRefresh(ctx context.Context, tokenID, subject string) error {
	owner, err := s.redis.Get(ctx, s.refreshKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrRefreshNotTracked
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if owner != subject {
		return ErrRefreshNotTracked
	}
	return nil
}

// RevokeRefresh deletes the allow-list entry for tokenID. Deleting an absent entry is not an error.
func (s *Store) RevokeRefresh(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.refreshKey(tokenID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Fingerprint is a short, non-reversible token identifier safe for logs.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

func (s *Store) blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":bl:" + hex.EncodeToString(sum[:])
}

func (s *Store) refreshKey(tokenID string) string {
	return s.prefix + ":rt:" + tokenID
}
