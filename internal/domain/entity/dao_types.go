package entity

import (
	"fmt"
	"strings"

	"stacks-dao-reader/internal/domain"
)

// AdapterType tags which adapter understands a DAO contract's layout.
type AdapterType string

// AdapterGeneric is the best-effort adapter used when nothing more specific is known.
const AdapterGeneric AdapterType = "generic"

// KnownDao is a catalog entry: a pointer to a DAO plus an optional adapter hint.
type KnownDao struct {
	Name            string      `json:"name" yaml:"name"`
	ContractAddress string      `json:"contractAddress" yaml:"contractAddress"`
	Network         Network     `json:"network" yaml:"network"`
	AdapterType     AdapterType `json:"adapterType,omitempty" yaml:"adapterType,omitempty"`
}

// DaoTreasury is the normalized treasury view. StxBalance is in STX, not micro-units.
type DaoTreasury struct {
	Name             string  `json:"name"`
	StxBalance       float64 `json:"stxBalance"`
	LastUpdatedBlock uint64  `json:"lastUpdatedBlock"`
}

// ProposalStatus is the closed set of proposal states exposed to consumers.
type ProposalStatus string

// Proposal states.
const (
	ProposalActive   ProposalStatus = "Active"
	ProposalPassed   ProposalStatus = "Passed"
	ProposalRejected ProposalStatus = "Rejected"
)

// ParseProposalStatus maps an on-chain status string onto one of the three states.
func ParseProposalStatus(raw string) (ProposalStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "open", "pending", "voting":
		return ProposalActive, nil
	case "passed", "executed", "approved", "succeeded", "concluded-passed":
		return ProposalPassed, nil
	case "rejected", "failed", "cancelled", "canceled", "expired", "defeated", "vetoed":
		return ProposalRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownProposalStatus, raw)
	}
}

// ProposalStatusFromCode maps numeric status codes: 0 active, 1 passed, 2 rejected.
func ProposalStatusFromCode(code uint64) (ProposalStatus, error) {
	switch code {
	case 0:
		return ProposalActive, nil
	case 1:
		return ProposalPassed, nil
	case 2:
		return ProposalRejected, nil
	default:
		return "", fmt.Errorf("%w: code %d", domain.ErrUnknownProposalStatus, code)
	}
}

// Proposal is one entry of a DAO's proposal list.
type Proposal struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Status             ProposalStatus `json:"status"`
	DaoContractAddress string         `json:"daoContractAddress"`
}

// Votes holds raw vote counts; percentages are left to consumers.
type Votes struct {
	Yes uint64 `json:"yes"`
	No  uint64 `json:"no"`
}

// ProposalDetails extends Proposal with the full on-chain record.
type ProposalDetails struct {
	Proposal
	Description   string `json:"description"`
	Votes         Votes  `json:"votes"`
	CreationBlock uint64 `json:"creationBlock"`
	Proposer      string `json:"proposer"`
}

// TreasuryHistoryPoint is one sample of a treasury balance over time.
type TreasuryHistoryPoint struct {
	Date        string  `json:"date"`
	BlockHeight uint64  `json:"blockHeight"`
	StxBalance  float64 `json:"balance"`
}

// DaoOverview bundles the dashboard reads for one DAO.
type DaoOverview struct {
	Treasury  *DaoTreasury `json:"treasury,omitempty"`
	Proposals []Proposal   `json:"proposals"`
}
