package scan

import (
	"math/big"
	"sync"
)

// reconcile folds the holder's delta history into its last balance row
// and upserts it. Summation is incremental only when the stored row
// fully predates rescanFrom. A row with end_block >= rescanFrom has
// purged deltas baked into its balance, so it is untrusted and the
// holder gets a full resummation from scratch.
//
// Returns nil without writing when the holder has no deltas at or below
// the checkpoint and no prior row (nothing to materialize), or the
// prior row unchanged when the row is trusted and no new delta exists.
func (s *Scanner) reconcile(status *Status, holder string, rescanFrom int64) (*LastBalance, error) {
	prev, err := s.store.GetLastBalance(status, holder)
	if err != nil {
		return nil, err
	}

	afterBlock := int64(-1)
	base := big.NewInt(0)
	stale := prev != nil && prev.EndBlock >= rescanFrom
	if prev != nil && !stale {
		afterBlock = prev.EndBlock
		base = prev.Balance
	}

	sum, err := s.store.SumDeltas(status, holder, afterBlock, status.LastScannedBlock)
	if err != nil {
		return nil, err
	}

	if sum.Count == 0 {
		// The rescan erased the holder's entire history, so the
		// stale row goes with it.
		if stale {
			return nil, s.store.DeleteLastBalance(status, holder)
		}

		// No new delta: repeated reconciliation is a safe no-op.
		return prev, nil
	}

	balance := new(big.Int).Add(base, sum.Total)

	// A negative sum means the ledger (or this engine) double-spent
	// somewhere. Never persist it.
	if balance.Sign() < 0 {
		return nil, &NegativeBalanceError{Holder: holder, Balance: balance}
	}

	lb := &LastBalance{
		HolderAddress: holder,
		Balance:       balance,
		EndBlock:      sum.LastBlock,
		EndBlockTime:  sum.LastTime,
	}

	if err := s.store.PutLastBalance(status, lb); err != nil {
		return nil, err
	}

	return lb, nil
}

// reconcileAll updates the last balance of every touched holder,
// fanned out over the worker pool. Each holder is handled by exactly
// one worker, so per-holder upserts never race within a run.
func (s *Scanner) reconcileAll(status *Status, touched map[string]bool, rescanFrom int64, result map[string]*big.Int) (map[string]*big.Int, error) {
	holders := make(chan string, len(touched))
	for holder := range touched {
		holders <- holder
	}
	close(holders)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for holder := range holders {
				lb, err := s.reconcile(status, holder, rescanFrom)

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}

					// A corrupt holder must not sink the batch.
					if _, ok := err.(*NegativeBalanceError); !ok {
						mu.Unlock()
						return
					}
				} else if lb != nil {
					result[holder] = lb.Balance
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	return result, firstErr
}
