package repository

import (
	"context"

	"stacks-dao-reader/internal/domain/entity"
)

// ChainRepository defines read access to the chain indexing API.
type ChainRepository interface {
	// FetchAccountBalance returns the current balances of an address or contract principal.
	FetchAccountBalance(ctx context.Context, address string, network entity.Network) (*entity.AccountBalance, error)

	// FetchAccountBalanceAt returns the balances as of the given block height.
	FetchAccountBalanceAt(
		ctx context.Context,
		address string,
		network entity.Network,
		untilBlock uint64,
	) (*entity.AccountBalance, error)

	// CallReadOnlyFunction invokes a read-only contract function.
	CallReadOnlyFunction(ctx context.Context, call entity.ReadOnlyCall) (*entity.CallResult, error)

	// GetContractInfo returns the public interface of a deployed contract.
	GetContractInfo(ctx context.Context, contractID string, network entity.Network) (*entity.ContractInfo, error)

	// GetBlockInfo returns the block at the given height.
	GetBlockInfo(ctx context.Context, height uint64, network entity.Network) (*entity.BlockInfo, error)

	// GetLatestBlockHeight returns the chain tip height, or 0 if the API lists no blocks.
	GetLatestBlockHeight(ctx context.Context, network entity.Network) (uint64, error)
}
