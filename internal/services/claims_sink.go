package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
)

// ErrCorruptClaims marks a stored payload that no longer decodes.
var ErrCorruptClaims = errors.New("undecodable claims payload")

// RedisClaimsSink keeps each user's claims payload under prefix+userID.
type RedisClaimsSink struct {
	client   redis.UniversalClient
	prefix   string
	maxBytes int
}

func NewRedisClaimsSink(client redis.UniversalClient, prefix string, maxBytes int) *RedisClaimsSink {
	if prefix == "" {
		prefix = "claims:"
	}
	if maxBytes <= 0 {
		maxBytes = authz.DefaultMaxClaimsBytes
	}
	return &RedisClaimsSink{client: client, prefix: prefix, maxBytes: maxBytes}
}

func (s *RedisClaimsSink) key(userID string) string {
	return s.prefix + userID
}

// GetClaims returns nil, nil when nothing has been published for userID.
func (s *RedisClaimsSink) GetClaims(ctx context.Context, userID string) (*authz.ClaimsPayload, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var payload authz.ClaimsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Errorf("%w: %v", ErrCorruptClaims, err), "stored claims for %s are corrupt", userID)
	}
	return &payload, nil
}

// SetClaims overwrites the stored payload. Payloads over the size limit are
// refused, mirroring the identity provider.
func (s *RedisClaimsSink) SetClaims(ctx context.Context, userID string, payload authz.ClaimsPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if len(raw) > s.maxBytes {
		return apperr.New(apperr.KindSizeLimit, "claims for %s are %d bytes, limit %d", userID, len(raw), s.maxBytes)
	}
	return s.client.Set(ctx, s.key(userID), raw, 0).Err()
}
