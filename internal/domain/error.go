package domain

import (
	"errors"
	"fmt"

	"stacks-dao-reader/internal/pkg/apperrors"
)

var (
	// ErrInvalidAddress means the value is not a Stacks principal or contract address.
	ErrInvalidAddress = fmt.Errorf("%w: invalid stacks address", apperrors.ErrInvalidInput)

	// ErrInvalidContractID means the identifier is not of the form principal.contract-name.
	ErrInvalidContractID = fmt.Errorf("%w: invalid contract identifier", apperrors.ErrInvalidInput)

	// ErrUnknownNetwork means the network name is neither mainnet nor testnet.
	ErrUnknownNetwork = fmt.Errorf("%w: unknown network", apperrors.ErrInvalidInput)

	// ErrInvalidProposalID means a proposal id could not be split into DAO address and sequence.
	ErrInvalidProposalID = fmt.Errorf("%w: invalid proposal id", apperrors.ErrInvalidInput)

	// ErrUnknownProposalStatus means an on-chain status could not be mapped to Active, Passed or Rejected.
	ErrUnknownProposalStatus = errors.New("unknown proposal status")
)

// APIError wraps a non-2xx response from the chain API that is not special-cased.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chain api returned status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return apperrors.ErrExternalServiceFailure
}

// NotFoundError is returned when the chain API reports a contract as missing.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return apperrors.ErrNotFound
}

// ContractCallError is returned when the API accepted a read-only call but the contract reported failure.
type ContractCallError struct {
	Cause string
}

func (e *ContractCallError) Error() string {
	if e.Cause == "" {
		return "contract call failed: unknown error"
	}
	return "contract call failed: " + e.Cause
}

// IsAbsence reports whether err means the requested on-chain entity does not exist
// (missing contract, failed contract call, rejected request) rather than an outage.
func IsAbsence(err error) bool {
	if err == nil {
		return false
	}
	var callErr *ContractCallError
	if errors.As(err, &callErr) {
		return true
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 429
	}
	return false
}
