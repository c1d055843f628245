package db

import (
	"database/sql"
	"math/big"
	"strings"
	"tokenscan/scan"
	"tokenscan/util"
)

// DropFrom deletes all deltas of the status with block_num >= beforeBlock
// and caps the checkpoint at beforeBlock-1, in one transaction. A crash
// can therefore never leave the checkpoint ahead of the delta data.
func (s *Store) DropFrom(status *scan.Status, beforeBlock int64) error {
	err := transact(func(tx *sql.Tx) error {
		const purge = "DELETE FROM `balance_delta` WHERE `status_id` = ? AND `block_num` >= ?"
		if _, err := tx.Exec(purge, status.ID, beforeBlock); err != nil {
			return err
		}

		const reset = "UPDATE `scan_status` SET `last_scanned_block` = LEAST(`last_scanned_block`, ?) WHERE `id` = ? LIMIT 1"
		_, err := tx.Exec(reset, beforeBlock-1, status.ID)
		return err
	})

	if err != nil {
		return err
	}

	if status.LastScannedBlock > beforeBlock-1 {
		status.LastScannedBlock = beforeBlock - 1
	}

	return nil
}

// CommitChunk appends a chunk's deltas and advances the checkpoint to
// lastScanned in one transaction, so a chunk is either fully scanned
// or not scanned at all.
func (s *Store) CommitChunk(status *scan.Status, deltas []scan.Delta, lastScanned int64) error {
	return transact(func(tx *sql.Tx) error {
		var current int64
		const readCheckpoint = "SELECT `last_scanned_block` FROM `scan_status` WHERE `id` = ? FOR UPDATE"
		if err := tx.QueryRow(readCheckpoint, status.ID).Scan(&current); err != nil {
			return err
		}

		if lastScanned < current {
			return scan.ErrInvalidProgress
		}

		if len(deltas) > 0 {
			values := make([]string, 0, len(deltas))
			args := make([]interface{}, 0, len(deltas)*5)

			for _, d := range deltas {
				values = append(values, "(?, ?, ?, ?, ?)")
				args = append(args,
					status.ID,
					d.HolderAddress,
					d.BlockNum,
					d.Amount.String(),
					d.BlockTime,
				)
			}

			query := "INSERT INTO `balance_delta` (`status_id`, `holder_address`, `block_num`, `amount_delta`, `block_time`) VALUES " +
				strings.Join(values, ", ")
			if _, err := tx.Exec(query, args...); err != nil {
				return err
			}
		}

		const advance = "UPDATE `scan_status` SET `last_scanned_block` = ? WHERE `id` = ? LIMIT 1"
		_, err := tx.Exec(advance, lastScanned, status.ID)
		return err
	})
}

// SumDeltas folds the holder's deltas with
// afterBlock < block_num <= uptoBlock, natively in the database.
func (s *Store) SumDeltas(status *scan.Status, holder string, afterBlock, uptoBlock int64) (scan.DeltaSum, error) {
	sum := scan.DeltaSum{Total: big.NewInt(0)}

	const query = "SELECT COALESCE(SUM(`amount_delta`), 0), COUNT(*), COALESCE(MAX(`block_num`), 0) FROM `balance_delta` WHERE `status_id` = ? AND `holder_address` = ? AND `block_num` > ? AND `block_num` <= ?"
	rows, err := wrappedQuery(query, status.ID, holder, afterBlock, uptoBlock)
	if err != nil {
		return sum, err
	}
	defer rows.Close()

	if !rows.Next() {
		return sum, rows.Err()
	}

	var totalStr string
	if err := rows.Scan(&totalStr, &sum.Count, &sum.LastBlock); err != nil {
		return sum, err
	}
	sum.Total = util.StrToBigInt(totalStr)

	if sum.Count == 0 {
		sum.LastBlock = 0
		return sum, nil
	}

	lastTime, err := blockTimeOfDelta(status.ID, holder, sum.LastBlock)
	if err != nil {
		return sum, err
	}
	sum.LastTime = lastTime

	return sum, nil
}

func blockTimeOfDelta(statusID uint, holder string, blockNum int64) (uint64, error) {
	const query = "SELECT `block_time` FROM `balance_delta` WHERE `status_id` = ? AND `holder_address` = ? AND `block_num` = ? LIMIT 1"
	rows, err := wrappedQuery(query, statusID, holder, blockNum)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}

	var blockTime uint64
	if err := rows.Scan(&blockTime); err != nil {
		return 0, err
	}

	return blockTime, nil
}
