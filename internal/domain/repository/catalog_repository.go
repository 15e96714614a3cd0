package repository

import (
	"context"

	"stacks-dao-reader/internal/domain/entity"
)

// CatalogRepository holds the known-DAO catalog.
type CatalogRepository interface {
	// List returns the catalog entries, filtered by network unless network is empty.
	List(ctx context.Context, network entity.Network) ([]entity.KnownDao, error)

	// Find looks an entry up by case-insensitive contract address.
	Find(ctx context.Context, contractAddress string) (entity.KnownDao, bool, error)

	// Register appends dao unless an entry with the same address exists. It returns the stored
	// entry and reports whether it was added.
	Register(ctx context.Context, dao entity.KnownDao) (entity.KnownDao, bool, error)
}
