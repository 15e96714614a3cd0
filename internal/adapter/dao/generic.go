package dao

import (
	"context"
	"errors"
	"fmt"

	"stacks-dao-reader/internal/clarity"
	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	domainRepo "stacks-dao-reader/internal/domain/repository"
	domainService "stacks-dao-reader/internal/domain/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ domainService.DaoAdapter = (*GenericAdapter)(nil)

// Read-only functions the generic adapter expects.
const (
	fnGetName          = "get-name"
	fnGetProposalCount = "get-proposal-count"
	fnGetProposal      = "get-proposal"
)

// Tuple field aliases accepted in get-proposal results, in lookup order.
var (
	titleFields       = []string{"title", "name"}
	descriptionFields = []string{"description", "details"}
	yesFields         = []string{"votes-for", "yes-votes"}
	noFields          = []string{"votes-against", "no-votes"}
	proposerFields    = []string{"proposer", "creator"}
	creationFields    = []string{"created-at", "start-block-height", "start-block"}
)

const proposalFetchConcurrency = 4

// GenericAdapter reads any DAO exposing a conventional treasury and proposal interface.
type GenericAdapter struct {
	chain        domainRepo.ChainRepository
	tip          domainService.ChainTip
	maxProposals int
	logger       *zap.Logger
}

// NewGenericAdapter is the Factory for entity.AdapterGeneric.
func NewGenericAdapter(deps Dependencies) domainService.DaoAdapter {
	maxProposals := deps.MaxProposals
	if maxProposals <= 0 {
		maxProposals = 20
	}
	return &GenericAdapter{
		chain:        deps.Chain,
		tip:          deps.Tip,
		maxProposals: maxProposals,
		logger:       deps.Logger.Named("GenericDaoAdapter"),
	}
}

// GetTreasury returns the STX balance held by the DAO principal.
func (a *GenericAdapter) GetTreasury(ctx context.Context, dao entity.KnownDao) (*entity.DaoTreasury, bool, error) {
	balance, err := a.chain.FetchAccountBalance(ctx, dao.ContractAddress, dao.Network)
	if err != nil {
		return nil, false, a.absenceOrError(err, "balance", dao)
	}

	stx, err := entity.ParseMicroStx(balance.STX.Balance)
	if err != nil {
		a.logger.Warn("Unreadable STX balance",
			zap.String("address", dao.ContractAddress), zap.String("balance", balance.STX.Balance), zap.Error(err),
		)
		return nil, false, nil
	}

	height, err := a.blockHeight(ctx, dao.Network)
	if err != nil {
		return nil, false, err
	}

	name, err := a.name(ctx, dao)
	if err != nil {
		return nil, false, err
	}

	return &entity.DaoTreasury{
		Name:             name,
		StxBalance:       stx,
		LastUpdatedBlock: height,
	}, true, nil
}

// GetProposals lists the newest proposals, newest first. A DAO without a readable
// proposal interface has no proposals.
func (a *GenericAdapter) GetProposals(ctx context.Context, dao entity.KnownDao) ([]entity.Proposal, error) {
	contract, ok := entity.ParseContractID(dao.ContractAddress)
	if !ok {
		a.logger.Debug("Address is not a contract, no proposals to read", zap.String("address", dao.ContractAddress))
		return []entity.Proposal{}, nil
	}

	res, err := a.call(ctx, dao, contract, fnGetProposalCount)
	if err != nil {
		if err := a.absenceOrError(err, fnGetProposalCount, dao); err != nil {
			return nil, err
		}
		return []entity.Proposal{}, nil
	}
	if !res.Decoded() {
		return []entity.Proposal{}, nil
	}
	count, ok := res.Value.Uint64()
	if !ok || count == 0 {
		return []entity.Proposal{}, nil
	}

	first := uint64(1)
	if count > uint64(a.maxProposals) {
		first = count - uint64(a.maxProposals) + 1
	}
	seqs := make([]uint64, 0, count-first+1)
	for seq := count; seq >= first; seq-- {
		seqs = append(seqs, seq)
	}

	found := make([]*entity.ProposalDetails, len(seqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(proposalFetchConcurrency)
	for i, seq := range seqs {
		g.Go(func() error {
			details, ok, err := a.GetProposalDetails(gctx, dao, seq)
			if err != nil {
				if isUnknownStatus(err) {
					a.logger.Warn("Skipping proposal with unmapped status",
						zap.String("dao", dao.ContractAddress), zap.Uint64("seq", seq), zap.Error(err),
					)
					return nil
				}
				return err
			}
			if ok {
				found[i] = details
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	proposals := make([]entity.Proposal, 0, len(found))
	for _, d := range found {
		if d != nil {
			proposals = append(proposals, d.Proposal)
		}
	}
	return proposals, nil
}

// GetProposalDetails projects get-proposal(seq) onto ProposalDetails. Vote counts are returned raw.
func (a *GenericAdapter) GetProposalDetails(
	ctx context.Context,
	dao entity.KnownDao,
	seq uint64,
) (*entity.ProposalDetails, bool, error) {
	contract, ok := entity.ParseContractID(dao.ContractAddress)
	if !ok {
		return nil, false, nil
	}

	res, err := a.call(ctx, dao, contract, fnGetProposal, clarity.UintHex(seq))
	if err != nil {
		return nil, false, a.absenceOrError(err, fnGetProposal, dao)
	}
	if !res.Decoded() {
		return nil, false, nil
	}
	record, ok := res.Value.Unwrap()
	if !ok || record.Kind != clarity.KindTuple {
		return nil, false, nil
	}

	status, ok, err := proposalStatus(record)
	if err != nil {
		return nil, false, fmt.Errorf("proposal %d of %s: %w", seq, dao.ContractAddress, err)
	}
	if !ok {
		a.logger.Debug("Proposal has no status field", zap.String("dao", dao.ContractAddress), zap.Uint64("seq", seq))
		return nil, false, nil
	}

	title, ok := textField(record, titleFields...)
	if !ok {
		title = fmt.Sprintf("Proposal #%d", seq)
	}
	description, _ := textField(record, descriptionFields...)
	proposer, _ := textField(record, proposerFields...)

	return &entity.ProposalDetails{
		Proposal: entity.Proposal{
			ID:                 entity.FormatProposalID(dao.ContractAddress, seq),
			Title:              title,
			Status:             status,
			DaoContractAddress: dao.ContractAddress,
		},
		Description: description,
		Votes: entity.Votes{
			Yes: a.uintField(record, yesFields...),
			No:  a.uintField(record, noFields...),
		},
		CreationBlock: a.uintField(record, creationFields...),
		Proposer:      proposer,
	}, true, nil
}

func (a *GenericAdapter) call(
	ctx context.Context,
	dao entity.KnownDao,
	contract entity.ContractID,
	fn string,
	args ...string,
) (*entity.CallResult, error) {
	return a.chain.CallReadOnlyFunction(ctx, entity.ReadOnlyCall{
		ContractAddress: contract.Principal,
		ContractName:    contract.ContractName,
		FunctionName:    fn,
		Args:            args,
		Network:         dao.Network,
	})
}

// name prefers the on-chain get-name, then the catalog name, then the contract name.
func (a *GenericAdapter) name(ctx context.Context, dao entity.KnownDao) (string, error) {
	fallback := dao.Name
	contract, isContract := entity.ParseContractID(dao.ContractAddress)
	if fallback == "" {
		fallback = dao.ContractAddress
		if isContract {
			fallback = contract.ContractName
		}
	}
	if !isContract {
		return fallback, nil
	}

	res, err := a.call(ctx, dao, contract, fnGetName)
	if err != nil {
		if err := a.absenceOrError(err, fnGetName, dao); err != nil {
			return "", err
		}
		return fallback, nil
	}
	if res.Decoded() {
		if name, ok := res.Value.StringValue(); ok && name != "" {
			return name, nil
		}
	}
	return fallback, nil
}

func (a *GenericAdapter) blockHeight(ctx context.Context, network entity.Network) (uint64, error) {
	if a.tip != nil {
		if height, fresh := a.tip.Height(network); fresh {
			return height, nil
		}
	}
	return a.chain.GetLatestBlockHeight(ctx, network)
}

// absenceOrError returns nil when err means the DAO or proposal does not exist.
func (a *GenericAdapter) absenceOrError(err error, what string, dao entity.KnownDao) error {
	if domain.IsAbsence(err) {
		a.logger.Debug("Treating failed read as absence",
			zap.String("read", what), zap.String("dao", dao.ContractAddress), zap.Error(err),
		)
		return nil
	}
	return err
}

// proposalStatus reads "status" (string or code) or the concluded/passed flag pair.
func proposalStatus(record clarity.Value) (entity.ProposalStatus, bool, error) {
	if v, ok := record.Field("status"); ok {
		if s, ok := v.StringValue(); ok {
			status, err := entity.ParseProposalStatus(s)
			return status, err == nil, err
		}
		if code, ok := v.Uint64(); ok {
			status, err := entity.ProposalStatusFromCode(code)
			return status, err == nil, err
		}
		return "", false, fmt.Errorf("%w: status of kind %s", domain.ErrUnknownProposalStatus, v.Kind)
	}

	concluded, hasConcluded := boolField(record, "concluded", "is-concluded")
	if !hasConcluded {
		if open, ok := boolField(record, "is-open", "active"); ok {
			concluded, hasConcluded = !open, true
		}
	}
	if !hasConcluded {
		return "", false, nil
	}
	if !concluded {
		return entity.ProposalActive, true, nil
	}
	passed, ok := boolField(record, "passed", "executed")
	if !ok {
		return "", false, fmt.Errorf("%w: concluded without outcome", domain.ErrUnknownProposalStatus)
	}
	if passed {
		return entity.ProposalPassed, true, nil
	}
	return entity.ProposalRejected, true, nil
}

func textField(record clarity.Value, names ...string) (string, bool) {
	v, ok := record.FirstField(names...)
	if !ok {
		return "", false
	}
	return v.StringValue()
}

// uintField reads the first present field as a uint64. Missing fields read as 0; present
// fields that are negative or overflow also read as 0 but are logged.
func (a *GenericAdapter) uintField(record clarity.Value, names ...string) uint64 {
	v, ok := record.FirstField(names...)
	if !ok {
		return 0
	}
	n, ok := v.Uint64()
	if !ok {
		a.logger.Warn("Proposal field is not a uint64",
			zap.Strings("fields", names),
			zap.String("kind", string(v.Kind)),
			zap.Stringer("value", v.Int),
		)
		return 0
	}
	return n
}

func boolField(record clarity.Value, names ...string) (bool, bool) {
	v, ok := record.FirstField(names...)
	if !ok {
		return false, false
	}
	return v.BoolValue()
}

func isUnknownStatus(err error) bool {
	return errors.Is(err, domain.ErrUnknownProposalStatus)
}
