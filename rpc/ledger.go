package rpc

import (
	"tokenscan/cache"
	"tokenscan/scan"
)

// Ledger implements scan.Ledger over the rpc server pool.
type Ledger struct{}

// NewLedger returns the rpc backed ledger client.
func NewLedger() *Ledger {
	return &Ledger{}
}

// ForgetBlocksFrom invalidates cached data of blocks at or after
// fromBlock, ahead of a rescan that may rewrite them.
func (l *Ledger) ForgetBlocksFrom(fromBlock int64) {
	cache.PurgeBlockTimesFrom(fromBlock)
}

// TransferEvents returns all transfer events of the token in
// [fromBlock, toBlockExcl).
func (l *Ledger) TransferEvents(token string, fromBlock, toBlockExcl int64) ([]scan.TransferEvent, error) {
	logs, err := GetTransferLogs(token, fromBlock, toBlockExcl)
	if err != nil {
		return nil, err
	}

	events := make([]scan.TransferEvent, 0, len(logs))

	for _, raw := range logs {
		// Logs of reorged-out blocks carry no balance change.
		if raw.Removed {
			continue
		}

		e, err := ParseTransfer(raw)
		if err != nil {
			return nil, err
		}

		events = append(events, e)
	}

	return events, nil
}

// BlockTime returns the unix timestamp of the given block,
// served from cache after the first fetch.
func (l *Ledger) BlockTime(blockNum int64) (uint64, error) {
	if blockTime, ok := cache.GetBlockTime(blockNum); ok {
		return blockTime, nil
	}

	blockTime, err := GetBlockTime(blockNum)
	if err != nil {
		return 0, err
	}

	cache.SetBlockTime(blockNum, blockTime)
	return blockTime, nil
}

// TokenDecimals calls the token contract for its decimals value,
// served from cache after the first call.
func (l *Ledger) TokenDecimals(token string) (uint8, error) {
	if decimals, ok := cache.GetDecimals(token); ok {
		return decimals, nil
	}

	decimals, err := CallDecimals(token)
	if err != nil {
		return 0, err
	}

	cache.SetDecimals(token, decimals)
	return decimals, nil
}
