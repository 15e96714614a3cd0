package entity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"stacks-dao-reader/internal/domain"
)

// MicroStxPerStx is the number of micro-units in one STX.
const MicroStxPerStx = 1_000_000

// The prefix and principal body are case-insensitive; contract names are lowercase only.
var addressRegex = regexp.MustCompile(`^(?i:SP|ST)[0-9A-Za-z]{38,41}(\.[a-z][a-z0-9-]*)?$`)

// IsValidAddress reports whether s is a Stacks principal, optionally followed by .contract-name.
func IsValidAddress(s string) bool {
	return addressRegex.MatchString(s)
}

// ContractID names a deployed contract as principal.contract-name.
type ContractID struct {
	Principal    string
	ContractName string
}

// ParseContractID splits an identifier on its single '.' separator.
// A bare principal is a valid address but not a contract id.
func ParseContractID(s string) (ContractID, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ContractID{}, false
	}
	return ContractID{Principal: parts[0], ContractName: parts[1]}, true
}

// String returns the principal.contract-name form.
func (c ContractID) String() string {
	return c.Principal + "." + c.ContractName
}

// PrincipalOf returns the part of an address before the contract separator.
func PrincipalOf(address string) string {
	principal, _, _ := strings.Cut(address, ".")
	return principal
}

// MicroStxToStx converts micro-units to STX without rounding.
func MicroStxToStx(microStx int64) float64 {
	return float64(microStx) / MicroStxPerStx
}

// ParseMicroStx converts a string-encoded micro-unit amount to STX.
func ParseMicroStx(microStx string) (float64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(microStx), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid micro-stx amount %q: %w", microStx, err)
	}
	return MicroStxToStx(amount), nil
}

// StxToMicroStx converts STX to micro-units, flooring any fractional remainder.
func StxToMicroStx(stx float64) int64 {
	return int64(math.Floor(stx * MicroStxPerStx))
}

// FormatStxAmount renders a micro-unit amount as STX with thousands separators.
func FormatStxAmount(microStx int64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(MicroStxToStx(microStx), 'f', decimals, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// ProposalRef locates a proposal: the DAO that owns it and its on-chain sequence number.
type ProposalRef struct {
	DaoAddress string
	Seq        uint64
}

// FormatProposalID builds the public proposal id "<dao-address>:<sequence>".
func FormatProposalID(daoAddress string, seq uint64) string {
	return daoAddress + ":" + strconv.FormatUint(seq, 10)
}

// ParseProposalID is the inverse of FormatProposalID.
func ParseProposalID(id string) (ProposalRef, error) {
	i := strings.LastIndex(id, ":")
	if i <= 0 || i == len(id)-1 {
		return ProposalRef{}, fmt.Errorf("%w: %q", domain.ErrInvalidProposalID, id)
	}
	address := id[:i]
	if !IsValidAddress(address) {
		return ProposalRef{}, fmt.Errorf("%w: %q", domain.ErrInvalidProposalID, id)
	}
	seq, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return ProposalRef{}, fmt.Errorf("%w: %q", domain.ErrInvalidProposalID, id)
	}
	return ProposalRef{DaoAddress: address, Seq: seq}, nil
}
