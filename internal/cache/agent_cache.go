package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jinzhu/copier"
	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/pkg/logger"
	pkgredis "github.com/propestai/voice-agent-service/pkg/redis"
	"go.uber.org/zap"
)

// AgentCache caches agent lookups by Retell agent id in Redis. Every webhook
// delivery resolves an agent, so this keeps the hot path off the database.
// Redis is optional: with a nil redis service the cache is a transparent
// pass-through to the repository. Cache failures are never fatal.
type AgentCache struct {
	redis pkgredis.RedisServiceInterface
	repo  repository.AgentRepository
	ttl   time.Duration
}

// NewAgentCache creates a new agent cache in front of the given repository.
func NewAgentCache(redis pkgredis.RedisServiceInterface, repo repository.AgentRepository, ttl time.Duration) *AgentCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AgentCache{
		redis: redis,
		repo:  repo,
		ttl:   ttl,
	}
}

// GetByRetellAgentID resolves an agent, serving from Redis when possible.
// Returns (nil, nil) when the agent does not exist, matching the repository
// contract.
func (c *AgentCache) GetByRetellAgentID(ctx context.Context, retellAgentID string) (*domain.Agent, error) {
	if c.redis != nil {
		key := c.redis.GenerateKey(pkgredis.AGENT_BY_RETELL_ID, retellAgentID)
		if raw, err := c.redis.GetValue(ctx, key); err == nil {
			var cached domain.Agent
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return copyAgent(&cached), nil
			}
			// stale or corrupt entry, fall through to the database
			_ = c.redis.DelValue(ctx, key)
		} else if !errors.Is(err, pkgredis.ErrKeyNotExist) {
			logger.Base().Warn("agent cache read failed, falling back to database",
				zap.String("agent_id", retellAgentID),
				zap.Error(err),
			)
		}
	}

	agent, err := c.repo.GetByRetellAgentID(ctx, retellAgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, nil
	}

	if c.redis != nil {
		if data, err := json.Marshal(agent); err == nil {
			key := c.redis.GenerateKey(pkgredis.AGENT_BY_RETELL_ID, retellAgentID)
			if err := c.redis.SetValue(ctx, key, string(data), c.ttl); err != nil {
				logger.Base().Warn("agent cache write failed",
					zap.String("agent_id", retellAgentID),
					zap.Error(err),
				)
			}
		}
	}

	return agent, nil
}

// Invalidate drops the cached entry for a Retell agent id. Called after
// agent updates and deletes.
func (c *AgentCache) Invalidate(ctx context.Context, retellAgentID string) {
	if c.redis == nil {
		return
	}
	key := c.redis.GenerateKey(pkgredis.AGENT_BY_RETELL_ID, retellAgentID)
	if err := c.redis.DelValue(ctx, key); err != nil {
		logger.Base().Warn("agent cache invalidation failed",
			zap.String("agent_id", retellAgentID),
			zap.Error(err),
		)
	}
}

// copyAgent returns a defensive copy so callers cannot mutate shared cached
// state.
func copyAgent(agent *domain.Agent) *domain.Agent {
	var cp domain.Agent
	if err := copier.Copy(&cp, agent); err != nil {
		return agent
	}
	return &cp
}
