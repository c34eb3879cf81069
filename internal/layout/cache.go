package layout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"carousel-server/internal/models"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const redisKeyPrefix = "carousel:layout:"

// CachedStore оборачивает Store двумя уровнями кэша: LRU в процессе и Redis.
// Записи шаблонов неизменяемы, поэтому инвалидация не нужна.
type CachedStore struct {
	next   Store
	local  *lru.Cache[uuid.UUID, *models.StoredLayout]
	redis  redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedStore redisClient может быть nil, тогда используется только LRU.
func NewCachedStore(next Store, size int, redisClient redis.Cmdable, ttl time.Duration, logger *zap.Logger) (*CachedStore, error) {
	if size <= 0 {
		size = 128
	}
	local, err := lru.New[uuid.UUID, *models.StoredLayout](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{
		next:   next,
		local:  local,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.Named("LayoutCache"),
	}, nil
}

var _ Store = (*CachedStore)(nil)

func (c *CachedStore) GetLayout(ctx context.Context, id uuid.UUID) (*models.StoredLayout, error) {
	if v, ok := c.local.Get(id); ok {
		layoutCacheTotal.WithLabelValues("lru", "hit").Inc()
		return v, nil
	}
	layoutCacheTotal.WithLabelValues("lru", "miss").Inc()

	if c.redis != nil {
		if v, ok := c.getRedis(ctx, id); ok {
			c.local.Add(id, v)
			return v, nil
		}
	}

	// Одновременные промахи по одному шаблону идут в БД одним запросом
	res, err, _ := c.group.Do(id.String(), func() (any, error) {
		v, err := c.next.GetLayout(ctx, id)
		if err != nil {
			return nil, err
		}
		c.local.Add(id, v)
		c.setRedis(ctx, id, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.StoredLayout), nil
}

// Put кладет только что сохраненный шаблон в кэш.
func (c *CachedStore) Put(ctx context.Context, v *models.StoredLayout) {
	c.local.Add(v.ID, v)
	c.setRedis(ctx, v.ID, v)
}

func (c *CachedStore) getRedis(ctx context.Context, id uuid.UUID) (*models.StoredLayout, bool) {
	data, err := c.redis.Get(ctx, redisKeyPrefix+id.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis layout lookup failed", zap.String("layout_id", id.String()), zap.Error(err))
		}
		layoutCacheTotal.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	var v models.StoredLayout
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("Corrupted layout in redis cache", zap.String("layout_id", id.String()), zap.Error(err))
		layoutCacheTotal.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	layoutCacheTotal.WithLabelValues("redis", "hit").Inc()
	return &v, true
}

func (c *CachedStore) setRedis(ctx context.Context, id uuid.UUID, v *models.StoredLayout) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+id.String(), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache layout in redis", zap.String("layout_id", id.String()), zap.Error(err))
	}
}
