package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/domain/entity"
	domainRepo "stacks-dao-reader/internal/domain/repository"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.CacheRepository = (*CacheRepository)(nil)

// Cache keys
const (
	blockKeyPrefix   = "block_v1_"
	historyKeyPrefix = "treasury_history_v1_"
)

// CacheRepository implements domainRepo.CacheRepository using the go-cache in-memory library.
type CacheRepository struct {
	cache  *cache.Cache
	logger *zap.Logger
	cfg    config.CacheConfig
}

// NewCacheRepository creates a new in-memory cache repository instance.
func NewCacheRepository(cfg config.CacheConfig, logger *zap.Logger) *CacheRepository {
	defaultExpiration := cfg.GetDefaultExpiration()
	cleanupInterval := cfg.GetCleanupInterval()

	c := cache.New(defaultExpiration, cleanupInterval)
	logger.Info(
		"Initialized go-cache for memory storage",
		zap.Duration("defaultExpiration", defaultExpiration),
		zap.Duration("cleanupInterval", cleanupInterval),
	)

	return &CacheRepository{
		cache:  c,
		logger: logger.Named("MemoryCacheStorage"),
		cfg:    cfg,
	}
}

// GetBlockInfo retrieves a cached block, returning found status.
func (r *CacheRepository) GetBlockInfo(
	_ context.Context,
	network entity.Network,
	height uint64,
) (*entity.BlockInfo, bool, error) {
	key := blockKey(network, height)
	block, found := getTyped[*entity.BlockInfo](r, key)
	return block, found, nil
}

// SetBlockInfo caches a block under its network and height.
func (r *CacheRepository) SetBlockInfo(
	_ context.Context,
	network entity.Network,
	block *entity.BlockInfo,
	ttl time.Duration,
) error {
	if block == nil {
		return fmt.Errorf("nil block for network %s", network)
	}
	r.set(blockKey(network, block.Height), block, ttl, r.cfg.GetBlockTTL())
	return nil
}

// GetTreasuryHistory retrieves a cached treasury history, returning found status.
func (r *CacheRepository) GetTreasuryHistory(
	_ context.Context,
	daoAddress string,
) ([]entity.TreasuryHistoryPoint, bool, error) {
	points, found := getTyped[[]entity.TreasuryHistoryPoint](r, historyKey(daoAddress))
	return points, found, nil
}

// SetTreasuryHistory caches a treasury history with a given TTL.
func (r *CacheRepository) SetTreasuryHistory(
	_ context.Context,
	daoAddress string,
	points []entity.TreasuryHistoryPoint,
	ttl time.Duration,
) error {
	r.set(historyKey(daoAddress), points, ttl, r.cfg.GetHistoryTTL())
	return nil
}

func getTyped[T any](r *CacheRepository, key string) (T, bool) {
	var zero T
	x, found := r.cache.Get(key)
	if !found {
		r.logger.Debug("Memory cache miss", zap.String("key", key))
		return zero, false
	}
	v, ok := x.(T)
	if !ok {
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", key),
			zap.String("type", fmt.Sprintf("%T", x)),
		)
		return zero, false
	}
	r.logger.Debug("Memory cache hit", zap.String("key", key))
	return v, true
}

// set stores value, falling back to the kind-specific TTL and then the cache default.
func (r *CacheRepository) set(key string, value any, ttl, fallback time.Duration) {
	if ttl <= 0 {
		ttl = fallback
		if ttl <= 0 {
			ttl = r.cfg.GetDefaultExpiration()
		}
	}
	r.cache.Set(key, value, ttl)
	r.logger.Debug("Memory cache set", zap.String("key", key), zap.Duration("ttl", ttl))
}

func blockKey(network entity.Network, height uint64) string {
	return blockKeyPrefix + string(network) + "_" + strconv.FormatUint(height, 10)
}

func historyKey(daoAddress string) string {
	return historyKeyPrefix + strings.ToUpper(daoAddress)
}
