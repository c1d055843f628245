package scan

import (
	"context"
	"math/big"
	"time"
	"tokenscan/log"
	"tokenscan/util"
)

const (
	defaultFetchAttempts = 5
	defaultBackoff       = 500 * time.Millisecond
)

// Scanner reconstructs holder balances of one token on one network
// from the ledger's transfer events.
type Scanner struct {
	network string
	token   string
	store   Store
	ledger  Ledger

	// workers bounds concurrent balance reconciliations.
	workers int

	// fetchAttempts and backoff control the retry policy for
	// transient ledger failures inside one chunk.
	fetchAttempts int
	backoff       time.Duration
}

// NewScanner validates the scan target and returns a Scanner.
// Balance reconciliation fans out over the given number of workers.
func NewScanner(store Store, ledger Ledger, network string, token string, workers int) (*Scanner, error) {
	if !KnownNetwork(network) {
		return nil, &ConfigError{Reason: "unrecognized network: " + network}
	}

	if !util.AddressValid(token) {
		return nil, &ConfigError{Reason: "malformed token address: " + token}
	}

	if workers < 1 {
		workers = 1
	}

	return &Scanner{
		network:       network,
		token:         util.ChecksumAddress(token),
		store:         store,
		ledger:        ledger,
		workers:       workers,
		fetchAttempts: defaultFetchAttempts,
		backoff:       defaultBackoff,
	}, nil
}

// Token returns the checksummed token address of the scanner.
func (s *Scanner) Token() string {
	return s.token
}

// Status returns the current checkpoint row, creating it on first use.
// Creation fetches the token's decimals from the chain exactly once.
func (s *Scanner) Status() (*Status, error) {
	status, err := s.store.GetStatus(s.network, s.token)
	if err != nil || status != nil {
		return status, err
	}

	decimals, err := s.fetchDecimals()
	if err != nil {
		return nil, err
	}

	return s.store.CreateStatus(s.network, s.token, decimals)
}

// Scan processes transfer events in [startBlock, endBlockExcl) in chunks
// of chunkSize blocks and returns the final balance of every holder
// touched during the run. Any previously recorded deltas at or after
// startBlock are purged first, so the caller asserts only data before
// startBlock is trustworthy.
//
// Each chunk commit is an independent durability point: after a crash,
// re-invoking Scan with the same or a wider range reproduces the same
// final balances. Cancellation is honored between chunks only, with all
// committed chunks retained.
//
// On a NegativeBalanceError the affected holder is skipped and the rest
// of the batch still completes; the returned map then holds every
// successfully reconciled holder alongside the error.
func (s *Scanner) Scan(ctx context.Context, startBlock, endBlockExcl, chunkSize int64) (map[string]*big.Int, error) {
	if chunkSize <= 0 {
		return nil, &ConfigError{Reason: "chunk size must be positive"}
	}

	result := make(map[string]*big.Int)

	// Empty range is an explicit no-op.
	if startBlock >= endBlockExcl {
		return result, nil
	}

	locked, err := s.store.TryLock(s.network, s.token)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrScanInProgress
	}
	defer s.store.Unlock(s.network, s.token)

	status, err := s.Status()
	if err != nil {
		return nil, err
	}

	if err := s.store.DropFrom(status, startBlock); err != nil {
		return nil, err
	}

	touched := make(map[string]bool)

	for current := startBlock; current < endBlockExcl; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunkEnd := current + chunkSize
		if chunkEnd > endBlockExcl {
			chunkEnd = endBlockExcl
		}

		deltas, addrs, err := s.scanChunk(current, chunkEnd)
		if err != nil {
			return nil, &ChunkError{Start: current, End: chunkEnd, Err: err}
		}

		if chunkEnd-1 < status.LastScannedBlock {
			return nil, ErrInvalidProgress
		}

		if err := s.store.CommitChunk(status, deltas, chunkEnd-1); err != nil {
			return nil, err
		}
		status.LastScannedBlock = chunkEnd - 1

		// Union, across all chunks. Holders touched only in early
		// chunks must still be reconciled at the end.
		for addr := range addrs {
			touched[addr] = true
		}

		current = chunkEnd
	}

	// Rows ending inside the rescanned range are stale even when the
	// rescan produced no new delta for their holder, e.g. a transfer
	// that a reorg removed outright.
	staleHolders, err := s.store.HoldersFrom(status, startBlock)
	if err != nil {
		return nil, err
	}
	for _, addr := range staleHolders {
		touched[addr] = true
	}

	return s.reconcileAll(status, touched, startBlock, result)
}

// scanChunk turns the transfer events of [startBlock, endExcl) into
// holder deltas. Nothing is persisted here.
func (s *Scanner) scanChunk(startBlock, endExcl int64) ([]Delta, map[string]bool, error) {
	events, err := s.fetchEvents(startBlock, endExcl)
	if err != nil {
		return nil, nil, err
	}

	deltas := make([]Delta, 0, len(events)*2)
	addrs := make(map[string]bool)

	// One timestamp fetch per distinct block within the chunk.
	blockTimes := make(map[int64]uint64)

	for _, e := range events {
		blockTime, ok := blockTimes[e.BlockNum]
		if !ok {
			blockTime, err = s.fetchBlockTime(e.BlockNum)
			if err != nil {
				return nil, nil, err
			}
			blockTimes[e.BlockNum] = blockTime
		}

		// The zero address mints and burns; it holds no balance.
		if e.From != "" && !util.IsZeroAddress(e.From) {
			deltas = append(deltas, Delta{
				HolderAddress: e.From,
				BlockNum:      e.BlockNum,
				Amount:        new(big.Int).Neg(e.Amount),
				BlockTime:     blockTime,
			})
			addrs[e.From] = true
		}

		if e.To != "" && !util.IsZeroAddress(e.To) {
			deltas = append(deltas, Delta{
				HolderAddress: e.To,
				BlockNum:      e.BlockNum,
				Amount:        new(big.Int).Set(e.Amount),
				BlockTime:     blockTime,
			})
			addrs[e.To] = true
		}
	}

	return deltas, addrs, nil
}

func (s *Scanner) fetchEvents(fromBlock, toBlockExcl int64) ([]TransferEvent, error) {
	var events []TransferEvent

	err := s.retry(func() error {
		var err error
		events, err = s.ledger.TransferEvents(s.token, fromBlock, toBlockExcl)
		return err
	})

	return events, err
}

func (s *Scanner) fetchBlockTime(blockNum int64) (uint64, error) {
	var blockTime uint64

	err := s.retry(func() error {
		var err error
		blockTime, err = s.ledger.BlockTime(blockNum)
		return err
	})

	return blockTime, err
}

func (s *Scanner) fetchDecimals() (uint8, error) {
	var decimals uint8

	err := s.retry(func() error {
		var err error
		decimals, err = s.ledger.TokenDecimals(s.token)
		return err
	})

	return decimals, err
}

// retry runs fn up to fetchAttempts times with exponential backoff.
// Only transient failures are retried.
func (s *Scanner) retry(fn func() error) error {
	delay := s.backoff

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}

		if attempt >= s.fetchAttempts {
			return err
		}

		log.Printf("Transient ledger error(attempt %d/%d), retrying in %v: %v\n",
			attempt, s.fetchAttempts, delay, err)
		time.Sleep(delay)
		delay *= 2
	}
}
