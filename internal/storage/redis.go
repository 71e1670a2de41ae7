package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

// DefaultInteractionTTL is how long an idle interaction is kept
const DefaultInteractionTTL = time.Hour

// RedisStorage implements the Storage interface using Redis for interactions,
// patrons and transaction flags, and a Content loader for static resources
type RedisStorage struct {
	client         *redis.Client
	content        *Content
	logger         *slog.Logger
	interactionTTL time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance.
// redisURL may be a redis:// URL or a bare host:port
func NewRedisStorage(redisURL string, content *Content, interactionTTL time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	}
	if interactionTTL <= 0 {
		interactionTTL = DefaultInteractionTTL
	}

	return &RedisStorage{
		client:         redis.NewClient(opts),
		content:        content,
		logger:         logger,
		interactionTTL: interactionTTL,
	}, nil
}

// Client returns the underlying Redis client, shared with the event broadcaster
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Interaction operations (Redis-backed)

func interactionKey(id uuid.UUID) string {
	return "interaction:" + id.String()
}

func (r *RedisStorage) SaveInteraction(ctx context.Context, it *state.Interaction) error {
	if it == nil {
		return errors.New("interaction cannot be nil")
	}
	it.UpdatedAt = time.Now()

	data, err := json.Marshal(it)
	if err != nil {
		r.logger.Error("Failed to marshal interaction", "id", it.ID, "error", err)
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	if err := r.client.Set(ctx, interactionKey(it.ID), data, r.interactionTTL).Err(); err != nil {
		r.logger.Error("Failed to save interaction", "id", it.ID, "error", err)
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadInteraction(ctx context.Context, id uuid.UUID) (*state.Interaction, error) {
	data, err := r.client.Get(ctx, interactionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Interaction not found", "id", id)
			return nil, nil
		}
		r.logger.Error("Failed to load interaction", "id", id, "error", err)
		return nil, fmt.Errorf("failed to load interaction: %w", err)
	}

	var it state.Interaction
	if err := json.Unmarshal(data, &it); err != nil {
		r.logger.Error("Failed to unmarshal interaction", "id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal interaction: %w", err)
	}
	return &it, nil
}

func (r *RedisStorage) DeleteInteraction(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, interactionKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete interaction", "id", id, "error", err)
		return fmt.Errorf("failed to delete interaction: %w", err)
	}
	return nil
}

func interactionLockKey(id uuid.UUID) string {
	return "interaction-lock:" + id.String()
}

// releaseLockScript deletes the lock only if owner still holds it
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func (r *RedisStorage) AcquireInteractionLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, interactionLockKey(id), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire interaction lock: %w", err)
	}
	return ok, nil
}

func (r *RedisStorage) ReleaseInteractionLock(ctx context.Context, id uuid.UUID, owner string) error {
	if err := releaseLockScript.Run(ctx, r.client, []string{interactionLockKey(id)}, owner).Err(); err != nil {
		r.logger.Error("Failed to release interaction lock", "id", id, "error", err)
		return fmt.Errorf("failed to release interaction lock: %w", err)
	}
	return nil
}

// Patron operations (Redis-backed, seeded from content)

func patronKey(id string) string {
	return "patron:" + id
}

func (r *RedisStorage) LoadPatron(ctx context.Context, patronID string) (*actor.Patron, error) {
	data, err := r.client.Get(ctx, patronKey(patronID)).Bytes()
	switch {
	case err == nil:
		var p actor.Patron
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal patron %q: %w", patronID, err)
		}
		return &p, nil
	case !errors.Is(err, redis.Nil):
		r.logger.Error("Failed to load patron", "patron_id", patronID, "error", err)
		return nil, fmt.Errorf("failed to load patron: %w", err)
	}

	spec, err := r.content.GetPatronSpec(ctx, patronID)
	if err != nil {
		return nil, err
	}
	return actor.NewPatronFromSpec(spec)
}

func (r *RedisStorage) ListPatrons(ctx context.Context) ([]string, error) {
	return r.content.ListPatrons(ctx)
}

// Transaction flags (Redis-backed)

func transactionKey(patronID, bartenderID string) string {
	return "transaction:" + patronID + ":" + bartenderID
}

func (r *RedisStorage) IsTransactionPerformed(ctx context.Context, patronID, bartenderID string) (bool, error) {
	n, err := r.client.Exists(ctx, transactionKey(patronID, bartenderID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}
	return n > 0, nil
}

// CommitTurn writes the interaction, the patron and the transaction flag in
// one MULTI/EXEC
func (r *RedisStorage) CommitTurn(ctx context.Context, it *state.Interaction, patron *actor.Patron, markTransaction bool) error {
	if it == nil {
		return errors.New("interaction cannot be nil")
	}
	it.UpdatedAt = time.Now()

	itData, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}
	var patronData []byte
	if patron != nil {
		if patronData, err = json.Marshal(patron); err != nil {
			return fmt.Errorf("failed to marshal patron: %w", err)
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, interactionKey(it.ID), itData, r.interactionTTL)
		if patron != nil {
			pipe.Set(ctx, patronKey(patron.Spec.ID), patronData, 0)
		}
		if markTransaction {
			pipe.Set(ctx, transactionKey(it.PatronID, it.BartenderID), time.Now().Unix(), 0)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to commit turn", "id", it.ID, "error", err)
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

// Content operations (filesystem-backed)

func (r *RedisStorage) GetBartender(ctx context.Context, bartenderID string) (*actor.BartenderSpec, error) {
	return r.content.GetBartender(ctx, bartenderID)
}

func (r *RedisStorage) ListBartenders(ctx context.Context) ([]string, error) {
	return r.content.ListBartenders(ctx)
}

func (r *RedisStorage) GetScript(ctx context.Context, key, language string) (*dialogue.Script, error) {
	return r.content.GetScript(ctx, key, language)
}
