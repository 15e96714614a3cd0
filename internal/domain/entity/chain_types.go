package entity

import "encoding/json"

// AccountBalance holds the balance fields returned by the indexing API.
// Amounts are string-encoded integer micro-units.
type AccountBalance struct {
	STX               StxBalance
	FungibleTokens    map[string]TokenBalance
	NonFungibleTokens map[string]NFTBalance
}

// StxBalance is the native-token part of an account balance.
type StxBalance struct {
	Balance                   string
	TotalSent                 string
	TotalReceived             string
	TotalFeesSent             string
	TotalMinerRewardsReceived string
	LockTxID                  string
	Locked                    string
	LockHeight                uint64
	BurnchainLockHeight       uint64
	BurnchainUnlockHeight     uint64
}

// TokenBalance describes one fungible token holding.
type TokenBalance struct {
	Balance       string
	TotalSent     string
	TotalReceived string
}

// NFTBalance describes holdings of one non-fungible asset class.
type NFTBalance struct {
	Count         string
	TotalSent     string
	TotalReceived string
}

// ContractFunction is one entry of a contract's public interface.
type ContractFunction struct {
	Name   string
	Access string
}

// ContractInfo is the contract interface as returned by the API.
// Raw keeps the full payload for adapters that need more than the function list.
type ContractInfo struct {
	ContractID string
	Functions  []ContractFunction
	Epoch      string
	Raw        json.RawMessage
}

// HasFunction reports whether the interface exposes a function with the given name.
func (c *ContractInfo) HasFunction(name string) bool {
	for _, f := range c.Functions {
		if f.Name == name {
			return true
		}
	}
	return false
}

// BlockInfo is the subset of block data consumers read.
type BlockInfo struct {
	Height           uint64
	Hash             string
	Canonical        bool
	BurnBlockTime    int64
	BurnBlockTimeISO string
	BurnBlockHeight  uint64
	TxCount          int
}
