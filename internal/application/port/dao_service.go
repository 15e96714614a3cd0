package port

import (
	"context"

	"stacks-dao-reader/internal/domain/entity"
)

// DaoService defines the read operations offered to the presentation layer.
type DaoService interface {
	// GetKnownDaos lists catalogued DAOs. An empty network lists all of them.
	GetKnownDaos(ctx context.Context, network entity.Network) ([]entity.KnownDao, error)

	// RegisterDao adds a DAO to the catalog and returns the stored entry; false means it was
	// already present.
	RegisterDao(ctx context.Context, dao entity.KnownDao) (entity.KnownDao, bool, error)

	// GetDaoTreasury returns nil when the DAO has no readable treasury.
	GetDaoTreasury(ctx context.Context, address string, network entity.Network) (*entity.DaoTreasury, error)

	// GetDaoProposals returns the newest proposals, newest first.
	GetDaoProposals(ctx context.Context, address string, network entity.Network) ([]entity.Proposal, error)

	// GetProposalDetails locates the DAO from the proposal id and returns nil when absent.
	GetProposalDetails(ctx context.Context, proposalID string, network entity.Network) (*entity.ProposalDetails, error)

	// GetDaoTreasuryHistory samples the treasury balance backwards from the chain tip, oldest first.
	GetDaoTreasuryHistory(ctx context.Context, address string, network entity.Network) ([]entity.TreasuryHistoryPoint, error)

	// GetDaoOverview reads treasury and proposals concurrently.
	GetDaoOverview(ctx context.Context, address string, network entity.Network) (*entity.DaoOverview, error)

	// CheckAPIs probes the chain API of every configured network.
	CheckAPIs(ctx context.Context) []entity.APIStatus
}
