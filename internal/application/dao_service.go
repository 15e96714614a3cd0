package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stacks-dao-reader/internal/application/port"
	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	domainRepo "stacks-dao-reader/internal/domain/repository"
	domainService "stacks-dao-reader/internal/domain/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure daoService implements DaoService
var _ port.DaoService = (*daoService)(nil)

const historyDateLayout = "2006-01-02"

// daoService implements the port.DaoService interface on top of the adapter registry.
type daoService struct {
	catalog  domainRepo.CatalogRepository
	chain    domainRepo.ChainRepository
	cache    domainRepo.CacheRepository
	resolver domainService.AdapterResolver
	checker  domainService.APIChecker
	tip      domainService.ChainTip
	networks entity.NetworkTable
	logger   *zap.Logger
	cfg      config.Config
}

// NewDaoService creates a new instance of the DAO service. tip may be nil.
func NewDaoService(
	catalog domainRepo.CatalogRepository,
	chain domainRepo.ChainRepository,
	cache domainRepo.CacheRepository,
	resolver domainService.AdapterResolver,
	checker domainService.APIChecker,
	tip domainService.ChainTip,
	networks entity.NetworkTable,
	logger *zap.Logger,
	cfg config.Config,
) port.DaoService {
	if networks == nil {
		networks = entity.DefaultNetworks()
	}
	return &daoService{
		catalog:  catalog,
		chain:    chain,
		cache:    cache,
		resolver: resolver,
		checker:  checker,
		tip:      tip,
		networks: networks,
		logger:   logger.Named("DaoService"),
		cfg:      cfg,
	}
}

// GetKnownDaos lists the catalog, optionally filtered by network.
func (s *daoService) GetKnownDaos(ctx context.Context, network entity.Network) ([]entity.KnownDao, error) {
	if network != "" {
		if _, err := entity.ParseNetwork(string(network)); err != nil {
			return nil, err
		}
	}
	daos, err := s.catalog.List(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("failed to list known DAOs: %w", err)
	}
	return daos, nil
}

// RegisterDao appends a DAO to the catalog unless its address is already known.
func (s *daoService) RegisterDao(ctx context.Context, dao entity.KnownDao) (entity.KnownDao, bool, error) {
	stored, added, err := s.catalog.Register(ctx, dao)
	if err != nil {
		return entity.KnownDao{}, false, fmt.Errorf("failed to register DAO: %w", err)
	}
	return stored, added, nil
}

// GetDaoTreasury resolves the adapter for address and reads the treasury.
func (s *daoService) GetDaoTreasury(
	ctx context.Context,
	address string,
	network entity.Network,
) (*entity.DaoTreasury, error) {
	known, adapter, err := s.resolver.Resolve(ctx, address, network)
	if err != nil {
		return nil, err
	}
	treasury, ok, err := adapter.GetTreasury(ctx, known)
	if err != nil {
		return nil, fmt.Errorf("treasury of %s: %w", known.ContractAddress, err)
	}
	if !ok {
		s.logger.Debug("No treasury for DAO", zap.String("address", known.ContractAddress))
		return nil, nil
	}
	return treasury, nil
}

// GetDaoProposals resolves the adapter for address and lists its proposals.
func (s *daoService) GetDaoProposals(
	ctx context.Context,
	address string,
	network entity.Network,
) ([]entity.Proposal, error) {
	known, adapter, err := s.resolver.Resolve(ctx, address, network)
	if err != nil {
		return nil, err
	}
	proposals, err := adapter.GetProposals(ctx, known)
	if err != nil {
		return nil, fmt.Errorf("proposals of %s: %w", known.ContractAddress, err)
	}
	return proposals, nil
}

// GetProposalDetails reads a single proposal identified by "<dao-address>:<sequence>".
func (s *daoService) GetProposalDetails(
	ctx context.Context,
	proposalID string,
	network entity.Network,
) (*entity.ProposalDetails, error) {
	ref, err := entity.ParseProposalID(proposalID)
	if err != nil {
		return nil, err
	}
	known, adapter, err := s.resolver.Resolve(ctx, ref.DaoAddress, network)
	if err != nil {
		return nil, err
	}
	details, ok, err := adapter.GetProposalDetails(ctx, known, ref.Seq)
	if err != nil {
		return nil, fmt.Errorf("proposal %s: %w", proposalID, err)
	}
	if !ok {
		return nil, nil
	}
	return details, nil
}

// GetDaoOverview fetches treasury and proposals concurrently.
func (s *daoService) GetDaoOverview(
	ctx context.Context,
	address string,
	network entity.Network,
) (*entity.DaoOverview, error) {
	known, adapter, err := s.resolver.Resolve(ctx, address, network)
	if err != nil {
		return nil, err
	}

	overview := &entity.DaoOverview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		treasury, ok, err := adapter.GetTreasury(gctx, known)
		if err != nil {
			return fmt.Errorf("treasury of %s: %w", known.ContractAddress, err)
		}
		if ok {
			overview.Treasury = treasury
		}
		return nil
	})
	g.Go(func() error {
		proposals, err := adapter.GetProposals(gctx, known)
		if err != nil {
			return fmt.Errorf("proposals of %s: %w", known.ContractAddress, err)
		}
		overview.Proposals = proposals
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// GetDaoTreasuryHistory samples the DAO balance every HistoryStepBlocks blocks back from
// the tip. Samples whose balance is absent are dropped.
func (s *daoService) GetDaoTreasuryHistory(
	ctx context.Context,
	address string,
	network entity.Network,
) ([]entity.TreasuryHistoryPoint, error) {
	known, _, err := s.resolver.Resolve(ctx, address, network)
	if err != nil {
		return nil, err
	}

	cached, found, err := s.cache.GetTreasuryHistory(ctx, known.ContractAddress)
	if err != nil {
		s.logger.Warn("Cache error when getting treasury history",
			zap.String("address", known.ContractAddress), zap.Error(err),
		)
	}
	if found {
		s.logger.Debug("Cache hit for treasury history", zap.String("address", known.ContractAddress))
		return cached, nil
	}

	tipHeight, err := s.tipHeight(ctx, known.Network)
	if err != nil {
		return nil, fmt.Errorf("chain tip for %s: %w", known.Network, err)
	}
	heights := historyHeights(tipHeight, s.cfg.Dao.HistoryPoints, s.cfg.Dao.HistoryStepBlocks)

	samples := make([]*entity.TreasuryHistoryPoint, len(heights))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.Dao.HistoryConcurrency))
	for i, height := range heights {
		g.Go(func() error {
			point, ok, err := s.historyPoint(gctx, known, height)
			if err != nil {
				return err
			}
			if ok {
				samples[i] = point
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("treasury history of %s: %w", known.ContractAddress, err)
	}

	points := make([]entity.TreasuryHistoryPoint, 0, len(samples))
	for _, p := range samples {
		if p != nil {
			points = append(points, *p)
		}
	}

	if err := s.cache.SetTreasuryHistory(ctx, known.ContractAddress, points, s.cfg.Cache.GetHistoryTTL()); err != nil {
		s.logger.Error("Failed to cache treasury history", zap.String("address", known.ContractAddress), zap.Error(err))
	}
	return points, nil
}

func (s *daoService) historyPoint(
	ctx context.Context,
	dao entity.KnownDao,
	height uint64,
) (*entity.TreasuryHistoryPoint, bool, error) {
	balance, err := s.chain.FetchAccountBalanceAt(ctx, dao.ContractAddress, dao.Network, height)
	if err != nil {
		if domain.IsAbsence(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	stx, err := entity.ParseMicroStx(balance.STX.Balance)
	if err != nil {
		s.logger.Warn("Unreadable historical balance", zap.Uint64("height", height), zap.Error(err))
		return nil, false, nil
	}

	point := &entity.TreasuryHistoryPoint{BlockHeight: height, StxBalance: stx}
	block, err := s.blockInfo(ctx, dao.Network, height)
	switch {
	case err == nil:
		point.Date = blockDate(block)
	case domain.IsAbsence(err):
		s.logger.Debug("No block info for history sample", zap.Uint64("height", height))
	default:
		return nil, false, err
	}
	return point, true, nil
}

func (s *daoService) blockInfo(ctx context.Context, network entity.Network, height uint64) (*entity.BlockInfo, error) {
	cached, found, err := s.cache.GetBlockInfo(ctx, network, height)
	if err != nil {
		s.logger.Warn("Cache error when getting block info", zap.Uint64("height", height), zap.Error(err))
	}
	if found {
		return cached, nil
	}

	block, err := s.chain.GetBlockInfo(ctx, height, network)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetBlockInfo(ctx, network, block, s.cfg.Cache.GetBlockTTL()); err != nil {
		s.logger.Warn("Failed to cache block info", zap.Uint64("height", height), zap.Error(err))
	}
	return block, nil
}

func (s *daoService) tipHeight(ctx context.Context, network entity.Network) (uint64, error) {
	if s.tip != nil {
		if height, fresh := s.tip.Height(network); fresh {
			return height, nil
		}
	}
	return s.chain.GetLatestBlockHeight(ctx, network)
}

// CheckAPIs probes every configured network concurrently. Failures are reported in the
// returned statuses rather than as an error.
func (s *daoService) CheckAPIs(ctx context.Context) []entity.APIStatus {
	names := []entity.Network{entity.NetworkMainnet, entity.NetworkTestnet}
	statuses := make([]entity.APIStatus, len(names))

	var wg sync.WaitGroup
	timeout := s.cfg.API.GetHealthCheckTimeout()
	for i, name := range names {
		nc, err := s.networks.Resolve(name)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			status, err := s.checker.CheckAPI(checkCtx, nc)
			if err != nil {
				s.logger.Debug("API check failed", zap.String("network", string(name)), zap.Error(err))
			}
			statuses[i] = status
		}()
	}
	wg.Wait()
	return statuses
}

// historyHeights returns up to points block heights ending at tip, step blocks apart, oldest first.
func historyHeights(tip uint64, points int, step uint64) []uint64 {
	if tip == 0 || points <= 0 {
		return nil
	}
	if step == 0 {
		return []uint64{tip}
	}
	heights := make([]uint64, 0, points)
	for i := points - 1; i >= 0; i-- {
		back := uint64(i) * step
		if back >= tip {
			continue
		}
		heights = append(heights, tip-back)
	}
	return heights
}

func blockDate(block *entity.BlockInfo) string {
	if block == nil || block.BurnBlockTime <= 0 {
		return ""
	}
	return time.Unix(block.BurnBlockTime, 0).UTC().Format(historyDateLayout)
}
