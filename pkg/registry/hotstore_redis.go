package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisHotStore is the production HotStore: a TTL'd primary key per agent
// plus set-valued secondary indexes, grounded on original_source's
// agent-registry/storage/redis_store.py. Redis sets have no per-member TTL,
// so index membership is verified against the (TTL'd) primary key on read —
// an id left in a set after its primary key expired is treated as stale and
// filtered out, never returned.
type RedisHotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHotStore builds a hot store backed by client with the given TTL.
func NewRedisHotStore(client *redis.Client, ttl time.Duration) *RedisHotStore {
	return &RedisHotStore{client: client, ttl: ttl}
}

func primaryKey(agentID string) string { return "agent:" + agentID }
func capabilityKey(cap string) string  { return "agents:capability:" + cap }
func typeKey(t AgentType) string       { return "agents:type:" + string(t) }
func statusKey(s Status) string        { return "agents:status:" + string(s) }

// Put writes the registration and keeps primary key and every index set
// consistent: add to all on insert (spec.md §4.3).
func (s *RedisHotStore) Put(ctx context.Context, reg Registration) error {
	// Remove stale index memberships from a previous version of this
	// registration (e.g. capability set changed) before re-adding.
	if prev, err := s.Get(ctx, reg.AgentID); err == nil {
		_ = s.removeFromIndexes(ctx, prev)
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("registry: marshal %s: %w", reg.AgentID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, primaryKey(reg.AgentID), data, s.ttl)
	for _, cap := range reg.Capabilities {
		pipe.SAdd(ctx, capabilityKey(cap), reg.AgentID)
		pipe.Expire(ctx, capabilityKey(cap), s.ttl)
	}
	pipe.SAdd(ctx, typeKey(reg.AgentType), reg.AgentID)
	pipe.Expire(ctx, typeKey(reg.AgentType), s.ttl)
	pipe.SAdd(ctx, statusKey(reg.Status), reg.AgentID)
	pipe.Expire(ctx, statusKey(reg.Status), s.ttl)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("registry: redis put %s: %w", reg.AgentID, err)
	}
	return nil
}

func (s *RedisHotStore) removeFromIndexes(ctx context.Context, reg Registration) error {
	pipe := s.client.TxPipeline()
	for _, cap := range reg.Capabilities {
		pipe.SRem(ctx, capabilityKey(cap), reg.AgentID)
	}
	pipe.SRem(ctx, typeKey(reg.AgentType), reg.AgentID)
	pipe.SRem(ctx, statusKey(reg.Status), reg.AgentID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisHotStore) Get(ctx context.Context, agentID string) (Registration, error) {
	data, err := s.client.Get(ctx, primaryKey(agentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Registration{}, ErrNotFound
	}
	if err != nil {
		return Registration{}, fmt.Errorf("registry: redis get %s: %w", agentID, err)
	}
	var reg Registration
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registration{}, fmt.Errorf("registry: unmarshal %s: %w", agentID, err)
	}
	return reg, nil
}

// Delete removes the primary key and every index entry (spec.md §4.3
// "remove from all on delete").
func (s *RedisHotStore) Delete(ctx context.Context, agentID string) error {
	reg, err := s.Get(ctx, agentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, primaryKey(agentID))
	if err == nil {
		for _, cap := range reg.Capabilities {
			pipe.SRem(ctx, capabilityKey(cap), agentID)
		}
		pipe.SRem(ctx, typeKey(reg.AgentType), agentID)
		pipe.SRem(ctx, statusKey(reg.Status), agentID)
	}
	_, execErr := pipe.Exec(ctx)
	return execErr
}

func (s *RedisHotStore) IDsByCapability(ctx context.Context, capability string) ([]string, error) {
	return s.liveMembers(ctx, capabilityKey(capability))
}

func (s *RedisHotStore) IDsByType(ctx context.Context, agentType AgentType) ([]string, error) {
	return s.liveMembers(ctx, typeKey(agentType))
}

func (s *RedisHotStore) IDsByStatus(ctx context.Context, status Status) ([]string, error) {
	return s.liveMembers(ctx, statusKey(status))
}

func (s *RedisHotStore) All(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "agent:*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("registry: redis scan: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len("agent:"):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// liveMembers returns set members whose primary key still exists, dropping
// ids whose TTL already expired but whose index entry hasn't been cleaned up
// yet.
func (s *RedisHotStore) liveMembers(ctx context.Context, setKey string) ([]string, error) {
	members, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("registry: redis smembers %s: %w", setKey, err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, len(members))
	for i, id := range members {
		keys[i] = primaryKey(id)
	}
	exists, err := s.client.Exists(ctx, keys...).Result()
	if err != nil || exists == int64(len(keys)) {
		// Fast path: either an error (fall through to return all, caller's
		// Get calls will filter) or every key is live.
		return members, nil
	}
	live := make([]string, 0, len(members))
	for _, id := range members {
		if n, _ := s.client.Exists(ctx, primaryKey(id)).Result(); n == 1 {
			live = append(live, id)
		} else {
			s.client.SRem(ctx, setKey, id)
		}
	}
	return live, nil
}

func (s *RedisHotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
