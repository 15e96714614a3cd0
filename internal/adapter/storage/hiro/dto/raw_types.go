package hiro_dto

import "encoding/json"

// BalancesRaw is the /extended/v1/address/{principal}/balances payload.
type BalancesRaw struct {
	STX               StxBalanceRaw       `json:"stx"`
	FungibleTokens    map[string]TokenRaw `json:"fungible_tokens"`
	NonFungibleTokens map[string]NFTRaw   `json:"non_fungible_tokens"`
}

// StxBalanceRaw is the native-token section of a balances payload.
type StxBalanceRaw struct {
	Balance                   string `json:"balance"`
	TotalSent                 string `json:"total_sent"`
	TotalReceived             string `json:"total_received"`
	TotalFeesSent             string `json:"total_fees_sent"`
	TotalMinerRewardsReceived string `json:"total_miner_rewards_received"`
	LockTxID                  string `json:"lock_tx_id"`
	Locked                    string `json:"locked"`
	LockHeight                uint64 `json:"lock_height"`
	BurnchainLockHeight       uint64 `json:"burnchain_lock_height"`
	BurnchainUnlockHeight     uint64 `json:"burnchain_unlock_height"`
}

// TokenRaw is one fungible token entry.
type TokenRaw struct {
	Balance       string `json:"balance"`
	TotalSent     string `json:"total_sent"`
	TotalReceived string `json:"total_received"`
}

// NFTRaw is one non-fungible asset entry.
type NFTRaw struct {
	Count         string `json:"count"`
	TotalSent     string `json:"total_sent"`
	TotalReceived string `json:"total_received"`
}

// ReadOnlyRequestRaw is the body of a call-read request.
type ReadOnlyRequestRaw struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// ReadOnlyResponseRaw is the call-read response.
type ReadOnlyResponseRaw struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result,omitempty"`
	Cause  string `json:"cause,omitempty"`
}

// ContractInterfaceRaw is the /v2/contracts/interface payload. Only the function list is typed.
type ContractInterfaceRaw struct {
	Functions []FunctionRaw `json:"functions"`
	Epoch     string        `json:"epoch,omitempty"`
}

// FunctionRaw is one function of a contract interface.
type FunctionRaw struct {
	Name   string          `json:"name"`
	Access string          `json:"access"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// BlockRaw is a block as returned by /extended/v1/block endpoints.
type BlockRaw struct {
	Canonical        bool     `json:"canonical"`
	Height           uint64   `json:"height"`
	Hash             string   `json:"hash"`
	BurnBlockTime    int64    `json:"burn_block_time"`
	BurnBlockTimeISO string   `json:"burn_block_time_iso"`
	BurnBlockHeight  uint64   `json:"burn_block_height"`
	TxCount          *int     `json:"tx_count,omitempty"`
	Txs              []string `json:"txs,omitempty"`
}

// BlockListRaw is the paginated /extended/v1/block payload.
type BlockListRaw struct {
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	Total   int        `json:"total"`
	Results []BlockRaw `json:"results"`
}

// StatusRaw is the /extended API status payload.
type StatusRaw struct {
	ServerVersion string       `json:"server_version"`
	Status        string       `json:"status"`
	ChainTip      *ChainTipRaw `json:"chain_tip,omitempty"`
}

// ChainTipRaw is the chain tip section of the status payload.
type ChainTipRaw struct {
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash,omitempty"`
}

// ErrorRaw is the error body shape of non-2xx responses.
type ErrorRaw struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
