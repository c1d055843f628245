package scan

import (
	"math/big"
)

// Status is the durable checkpoint of how far a token has been scanned.
// One row per (network, token address). LastScannedBlock is -1 until the
// first chunk commits.
type Status struct {
	ID               uint
	Network          string
	TokenAddress     string
	Decimals         uint8
	LastScannedBlock int64
}

// Delta is a signed balance change of one holder caused by one
// transfer event, in the token's smallest unit.
type Delta struct {
	HolderAddress string
	BlockNum      int64
	Amount        *big.Int
	BlockTime     uint64
}

// LastBalance is the denormalized current balance of one holder,
// valid as of EndBlock.
type LastBalance struct {
	HolderAddress string
	Balance       *big.Int
	EndBlock      int64
	EndBlockTime  uint64
}

// TransferEvent is one token transfer as reported by the ledger.
// From is empty or the zero address for mints, To for burns.
type TransferEvent struct {
	From     string
	To       string
	Amount   *big.Int
	BlockNum int64
}

// DeltaSum is the result of folding a holder's deltas over a block range.
type DeltaSum struct {
	// Total is the signed sum of all contributing deltas.
	Total *big.Int
	// LastBlock and LastTime belong to the latest contributing delta.
	LastBlock int64
	LastTime  uint64
	// Count is the number of contributing deltas.
	Count int
}

// Ledger fetches chain data. Implementations must wrap retryable
// failures so that IsTransient reports true for them.
type Ledger interface {
	// TransferEvents returns all transfer events of the token in
	// [fromBlock, toBlockExcl), in ledger order.
	TransferEvents(token string, fromBlock, toBlockExcl int64) ([]TransferEvent, error)
	// BlockTime returns the unix timestamp of the given block.
	BlockTime(blockNum int64) (uint64, error)
	// TokenDecimals calls the token contract for its decimals value.
	TokenDecimals(token string) (uint8, error)
}

// Store is the durable storage the engine depends on.
type Store interface {
	// GetStatus returns the scan status row, or nil if none exists yet.
	GetStatus(network, token string) (*Status, error)
	// CreateStatus inserts a new scan status row with LastScannedBlock = -1.
	CreateStatus(network, token string, decimals uint8) (*Status, error)
	// DropFrom deletes all deltas with block_num >= beforeBlock and caps
	// LastScannedBlock at beforeBlock-1, in a single transaction.
	// status is updated in place on success.
	DropFrom(status *Status, beforeBlock int64) error
	// CommitChunk appends the chunk's deltas and advances the checkpoint
	// to lastScanned in a single transaction. Moving the checkpoint
	// backwards fails with ErrInvalidProgress.
	CommitChunk(status *Status, deltas []Delta, lastScanned int64) error
	// SumDeltas folds the holder's deltas with
	// afterBlock < block_num <= uptoBlock.
	SumDeltas(status *Status, holder string, afterBlock, uptoBlock int64) (DeltaSum, error)
	// GetLastBalance returns the holder's last balance row, or nil.
	GetLastBalance(status *Status, holder string) (*LastBalance, error)
	// PutLastBalance inserts or updates the holder's last balance row.
	PutLastBalance(status *Status, lb *LastBalance) error
	// DeleteLastBalance removes the holder's last balance row.
	DeleteLastBalance(status *Status, holder string) error
	// HoldersFrom returns the holders whose last balance row has
	// end_block >= fromBlock.
	HoldersFrom(status *Status, fromBlock int64) ([]string, error)
	// TryLock acquires the exclusive advisory scan lock of the token.
	// Returns false without blocking when another run holds it.
	TryLock(network, token string) (bool, error)
	// Unlock releases the advisory scan lock.
	Unlock(network, token string) error
}

// networks lists the recognized network identifiers.
var networks = map[string]bool{
	"ethereum": true,
	"kovan":    true,
	"ropsten":  true,
	"testing":  true,
}

// KnownNetwork checks if network is a recognized network identifier.
func KnownNetwork(network string) bool {
	return networks[network]
}
