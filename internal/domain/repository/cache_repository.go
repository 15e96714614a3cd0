package repository

import (
	"context"
	"time"

	"stacks-dao-reader/internal/domain/entity"
)

// CacheRepository defines the interface for caching derived chain reads.
type CacheRepository interface {
	// GetBlockInfo retrieves a cached block by network and height.
	GetBlockInfo(ctx context.Context, network entity.Network, height uint64) (*entity.BlockInfo, bool, error)

	// SetBlockInfo caches a block. Blocks are immutable once canonical, so the TTL may be long.
	SetBlockInfo(ctx context.Context, network entity.Network, block *entity.BlockInfo, ttl time.Duration) error

	// GetTreasuryHistory retrieves a cached treasury history for a DAO address.
	GetTreasuryHistory(ctx context.Context, daoAddress string) ([]entity.TreasuryHistoryPoint, bool, error)

	// SetTreasuryHistory stores a treasury history with a specified TTL.
	SetTreasuryHistory(ctx context.Context, daoAddress string, points []entity.TreasuryHistoryPoint, ttl time.Duration) error
}
