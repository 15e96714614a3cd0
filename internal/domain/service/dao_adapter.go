package service

import (
	"context"

	"stacks-dao-reader/internal/domain/entity"
)

// DaoAdapter normalizes one on-chain DAO contract layout into the domain model.
// Implementations return an absence signal (false, or an empty list) when the DAO
// or proposal does not exist, and an error only for genuine API failures.
type DaoAdapter interface {
	GetTreasury(ctx context.Context, dao entity.KnownDao) (*entity.DaoTreasury, bool, error)
	GetProposals(ctx context.Context, dao entity.KnownDao) ([]entity.Proposal, error)
	GetProposalDetails(ctx context.Context, dao entity.KnownDao, seq uint64) (*entity.ProposalDetails, bool, error)
}

// AdapterResolver finds the catalog entry and adapter for a DAO address.
type AdapterResolver interface {
	Resolve(ctx context.Context, address string, network entity.Network) (entity.KnownDao, DaoAdapter, error)
}
