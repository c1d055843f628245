package tasks

import (
	"context"
	"fmt"
	"math/big"
	"time"
	"tokenscan/config"
	"tokenscan/db"
	"tokenscan/log"
	"tokenscan/mail"
	"tokenscan/rpc"
	"tokenscan/scan"
)

const pollInterval = 10 * time.Second

// scanToken keeps one token's balances in sync with the chain head.
// Every round rescans a small trailing window, so deltas written from
// blocks that later reorganized away are purged and re-derived.
func scanToken(store *db.Store, ledger *rpc.Ledger, tokenCfg config.TokenConfig) {
	defer mail.AlertIfErr()

	scanner, err := scan.NewScanner(store, ledger,
		config.GetNetwork(), tokenCfg.Address, config.GetWorkers())
	if err != nil {
		panic(err)
	}

	progress := &Progress{}

	for {
		bestHeight := rpc.BestHeight.Get()
		endExcl := bestHeight + 1

		startBlock, err := nextStart(scanner, tokenCfg)
		if err != nil {
			log.Error.Printf("Token %s: checkpoint lookup failed: %v\n", scanner.Token(), err)
			time.Sleep(pollInterval)
			continue
		}

		if startBlock >= endExcl {
			time.Sleep(pollInterval)
			continue
		}

		// The rescan window may cover reorged blocks whose cached
		// timestamps no longer hold.
		ledger.ForgetBlocksFrom(startBlock)

		result, err := scanner.Scan(context.Background(),
			startBlock, endExcl, config.GetChunkSize())
		if err != nil {
			if _, ok := err.(*scan.NegativeBalanceError); ok {
				// The rest of the batch still landed; alert and move on.
				log.Error.Printf("Token %s: %v\n", scanner.Token(), err)
				mail.SendNotify("Negative Balance Detected", err.Error())
			} else {
				log.Error.Printf("Scan of token %s failed: %v\n", scanner.Token(), err)
				time.Sleep(pollInterval)
				continue
			}
		}

		if len(result) > 0 {
			log.Printf("Token %s: %d holder balances updated at block %d\n",
				scanner.Token(), len(result), endExcl-1)
		}

		showScanProgress(scanner, progress, endExcl-1, rpc.BestHeight.Get())

		time.Sleep(pollInterval)
	}
}

// nextStart picks where the next round begins: the configured start
// block on a fresh token, otherwise just behind the checkpoint by the
// rescan window.
func nextStart(scanner *scan.Scanner, tokenCfg config.TokenConfig) (int64, error) {
	status, err := scanner.Status()
	if err != nil {
		return 0, err
	}

	if status.LastScannedBlock < 0 {
		return tokenCfg.StartBlock, nil
	}

	start := status.LastScannedBlock + 1 - config.GetRescanBlocks()
	if start < tokenCfg.StartBlock {
		start = tokenCfg.StartBlock
	}

	return start, nil
}

func showScanProgress(scanner *scan.Scanner, progress *Progress, scanned int64, bestHeight int64) {
	now := time.Now()

	if progress.LastOutputTime == (time.Time{}) {
		progress.LastOutputTime = now
	}

	if scanned < bestHeight &&
		now.Sub(progress.LastOutputTime) < time.Second {
		return
	}

	GetEstimatedRemainingTime(scanned, bestHeight, progress)
	if progress.Percentage.Cmp(big.NewFloat(100)) == 0 {
		progress.Finished = true
	}

	log.Printf("%sScan progress of %s: %d/%d, %.4f%%\n",
		progress.RemainingTimeStr,
		scanner.Token(),
		scanned,
		bestHeight,
		progress.Percentage,
	)
	progress.LastOutputTime = now

	// Send mail if fully synced.
	if progress.Finished && !progress.MailSent {
		progress.MailSent = true

		// If sync lasts shortly, do not send mail.
		if time.Since(progress.InitTime) < time.Minute*5 {
			return
		}

		holders := int64(0)
		if status, err := scanner.Status(); err == nil {
			holders, _ = db.CountHolders(status)
		}

		msg := fmt.Sprintf("Token: %s\nHeight: %d\nHolders: %d\n",
			scanner.Token(), scanned, holders)
		mail.SendNotify("Token Balances Fully Synced", msg)
	}
}
