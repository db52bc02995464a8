package readmodel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/engine"
)

// Cache é o read model de apostas em Redis, com read-through e invalidação
// explícita a cada mutação do motor. Falha de cache nunca falha a operação:
// vira miss e a leitura segue para o banco.
type Cache struct {
	r   *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func New(r *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{r: r, ttl: ttl, log: log}
}

func keyBetView(betID string) string { return "bet:view:" + betID }

func (c *Cache) Get(ctx context.Context, betID string) (*engine.BetView, bool) {
	b, err := c.r.Get(ctx, keyBetView(betID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Debug("bet view cache get", zap.Error(err))
		return nil, false
	}
	var v engine.BetView
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (c *Cache) Set(ctx context.Context, v *engine.BetView) {
	b, _ := json.Marshal(v)
	if err := c.r.Set(ctx, keyBetView(v.ID), b, c.ttl).Err(); err != nil {
		c.log.Debug("bet view cache set", zap.Error(err))
	}
}

func (c *Cache) Invalidate(ctx context.Context, betID string) {
	if err := c.r.Del(ctx, keyBetView(betID)).Err(); err != nil {
		c.log.Debug("bet view cache invalidate", zap.Error(err))
	}
}
