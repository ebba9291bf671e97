// Package redis holds the Redis-backed plant-list cache: a short-TTL copy of
// a user's plant list, invalidated wholesale on logout or on any plant write.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/types"
	"github.com/sharkteam/plantcloud-backend/internal/utils"
)

type PlantCache interface {
	Get(ctx context.Context, username string) ([]*types.Plant, bool)
	Set(ctx context.Context, username string, plants []*types.Plant)
	Invalidate(ctx context.Context, username string)
	Close() error
}

type plantCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewPlantCache connects to REDIS_ADDR. A missing address is an error so the
// caller can run without a cache instead of caching against nothing.
func NewPlantCache(log *logger.Logger) (PlantCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttlSec := utils.GetEnvAsInt("PLANT_CACHE_TTL_SECONDS", 60, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &plantCache{
		log: log.With("service", "RedisPlantCache"),
		rdb: rdb,
		ttl: time.Duration(ttlSec) * time.Second,
	}, nil
}

func cacheKey(username string) string {
	return "plants:" + username
}

func (pc *plantCache) Get(ctx context.Context, username string) ([]*types.Plant, bool) {
	if pc == nil || pc.rdb == nil {
		return nil, false
	}
	raw, err := pc.rdb.Get(ctx, cacheKey(username)).Bytes()
	if err != nil {
		return nil, false
	}
	var plants []*types.Plant
	if err := json.Unmarshal(raw, &plants); err != nil {
		pc.log.Warn("Bad plant cache payload, dropping", "username", username, "error", err)
		pc.Invalidate(ctx, username)
		return nil, false
	}
	return plants, true
}

func (pc *plantCache) Set(ctx context.Context, username string, plants []*types.Plant) {
	if pc == nil || pc.rdb == nil {
		return
	}
	raw, err := json.Marshal(plants)
	if err != nil {
		return
	}
	if err := pc.rdb.Set(ctx, cacheKey(username), raw, pc.ttl).Err(); err != nil {
		pc.log.Warn("Plant cache set failed", "username", username, "error", err)
	}
}

func (pc *plantCache) Invalidate(ctx context.Context, username string) {
	if pc == nil || pc.rdb == nil {
		return
	}
	if err := pc.rdb.Del(ctx, cacheKey(username)).Err(); err != nil {
		pc.log.Warn("Plant cache invalidate failed", "username", username, "error", err)
	}
}

func (pc *plantCache) Close() error {
	if pc == nil || pc.rdb == nil {
		return nil
	}
	return pc.rdb.Close()
}
