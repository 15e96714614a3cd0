package hiro

import (
	dto "stacks-dao-reader/internal/adapter/storage/hiro/dto"
	"stacks-dao-reader/internal/domain/entity"
)

// toDomainBalance converts a raw balances payload to its domain counterpart.
func toDomainBalance(raw dto.BalancesRaw) *entity.AccountBalance {
	balance := &entity.AccountBalance{
		STX: entity.StxBalance{
			Balance:                   raw.STX.Balance,
			TotalSent:                 raw.STX.TotalSent,
			TotalReceived:             raw.STX.TotalReceived,
			TotalFeesSent:             raw.STX.TotalFeesSent,
			TotalMinerRewardsReceived: raw.STX.TotalMinerRewardsReceived,
			LockTxID:                  raw.STX.LockTxID,
			Locked:                    raw.STX.Locked,
			LockHeight:                raw.STX.LockHeight,
			BurnchainLockHeight:       raw.STX.BurnchainLockHeight,
			BurnchainUnlockHeight:     raw.STX.BurnchainUnlockHeight,
		},
		FungibleTokens:    make(map[string]entity.TokenBalance, len(raw.FungibleTokens)),
		NonFungibleTokens: make(map[string]entity.NFTBalance, len(raw.NonFungibleTokens)),
	}
	for id, t := range raw.FungibleTokens {
		balance.FungibleTokens[id] = entity.TokenBalance{
			Balance:       t.Balance,
			TotalSent:     t.TotalSent,
			TotalReceived: t.TotalReceived,
		}
	}
	for id, n := range raw.NonFungibleTokens {
		balance.NonFungibleTokens[id] = entity.NFTBalance{
			Count:         n.Count,
			TotalSent:     n.TotalSent,
			TotalReceived: n.TotalReceived,
		}
	}
	return balance
}

// toDomainContractInfo keeps the typed function list and the full raw payload.
func toDomainContractInfo(contractID string, raw dto.ContractInterfaceRaw, body []byte) *entity.ContractInfo {
	info := &entity.ContractInfo{
		ContractID: contractID,
		Functions:  make([]entity.ContractFunction, 0, len(raw.Functions)),
		Epoch:      raw.Epoch,
		Raw:        append([]byte(nil), body...),
	}
	for _, f := range raw.Functions {
		info.Functions = append(info.Functions, entity.ContractFunction{Name: f.Name, Access: f.Access})
	}
	return info
}

// toDomainBlock converts a raw block. tx_count is preferred over the txs list when present.
func toDomainBlock(raw dto.BlockRaw) *entity.BlockInfo {
	txCount := len(raw.Txs)
	if raw.TxCount != nil {
		txCount = *raw.TxCount
	}
	return &entity.BlockInfo{
		Height:           raw.Height,
		Hash:             raw.Hash,
		Canonical:        raw.Canonical,
		BurnBlockTime:    raw.BurnBlockTime,
		BurnBlockTimeISO: raw.BurnBlockTimeISO,
		BurnBlockHeight:  raw.BurnBlockHeight,
		TxCount:          txCount,
	}
}
