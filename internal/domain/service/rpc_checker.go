package service

import (
	"context"

	"stacks-dao-reader/internal/domain/entity"
)

// APIChecker defines the interface for probing a network's chain API.
type APIChecker interface {
	CheckAPI(ctx context.Context, network entity.NetworkConfig) (entity.APIStatus, error)
}

// ChainTip reports the latest block height seen on a network's event stream.
type ChainTip interface {
	// Height returns the tip height and whether it is fresh enough to use.
	Height(network entity.Network) (uint64, bool)
}
