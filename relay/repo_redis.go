package relay

import (
	"context"
	"encoding/json"
	"time"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "adboard:relay:"

	sessionKeySuffix = "sess:"
	payloadKeySuffix = "payload:"
)

// RedisRepo is a Redis-backed Repo for multi-instance relay deployments.
// Expiry is native: both keys carry the session TTL, so no janitor is
// needed. First-write-wins comes from SETNX on the payload key.
type RedisRepo struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ Repo = (*RedisRepo)(nil)

// RedisOption modifies a RedisRepo instance.
type RedisOption func(*RedisRepo)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepo) {
		r.keyPrefix = prefix
	}
}

// WithRedisSessionTTL overrides the server-side session lifetime.
func WithRedisSessionTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRepo) {
		r.ttl = ttl
	}
}

// NewRedisRepo creates a Redis-backed relay session repository and verifies
// connectivity.
func NewRedisRepo(ctx context.Context, client redis.UniversalClient, options ...RedisOption) (*RedisRepo, error) {
	if client == nil {
		return nil, errors.New("[NewRedisRepo] client is required")
	}
	r := &RedisRepo{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultSessionTTL,
	}
	for _, opt := range options {
		opt(r)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "[NewRedisRepo] redis ping")
	}
	return r, nil
}

func (r *RedisRepo) sessionKey(id string) string { return r.keyPrefix + sessionKeySuffix + id }
func (r *RedisRepo) payloadKey(id string) string { return r.keyPrefix + payloadKeySuffix + id }

// Create registers an empty session and clears any stale payload under the
// same id.
func (r *RedisRepo) Create(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("sessionID cannot be empty")
	}
	if err := r.client.Set(ctx, r.sessionKey(sessionID), "1", r.ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Create] set session key")
	}
	if err := r.client.Del(ctx, r.payloadKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Create] clear stale payload")
	}
	return nil
}

// Write stores the payload, first-write-wins via SETNX.
func (r *RedisRepo) Write(ctx context.Context, sessionID string, payload message.AuthMessage) (bool, error) {
	if sessionID == "" {
		return false, errors.New("sessionID cannot be empty")
	}
	exists, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "[RedisRepo.Write] exists")
	}
	if exists == 0 {
		return false, autherrors.ErrSessionNotFound
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, errors.Wrap(err, "[RedisRepo.Write] json.Marshal")
	}
	accepted, err := r.client.SetNX(ctx, r.payloadKey(sessionID), raw, r.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "[RedisRepo.Write] setnx")
	}
	return accepted, nil
}

// Read returns the payload, or nil when the session is still unwritten.
func (r *RedisRepo) Read(ctx context.Context, sessionID string) (*message.AuthMessage, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID cannot be empty")
	}
	raw, err := r.client.Get(ctx, r.payloadKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		exists, existsErr := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
		if existsErr != nil {
			return nil, errors.Wrap(existsErr, "[RedisRepo.Read] exists")
		}
		if exists == 0 {
			return nil, autherrors.ErrSessionNotFound
		}
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Read] get")
	}
	var payload message.AuthMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Read] json.Unmarshal")
	}
	return &payload, nil
}

// Delete removes a session and its payload.
func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID), r.payloadKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Delete] del")
	}
	return nil
}
