package db

import (
	"database/sql"
	"tokenscan/scan"
	"tokenscan/util"
)

// GetLastBalance returns the holder's denormalized balance row, or nil.
func (s *Store) GetLastBalance(status *scan.Status, holder string) (*scan.LastBalance, error) {
	const query = "SELECT `holder_address`, `balance`, `end_block`, `end_block_time` FROM `last_balance` WHERE `status_id` = ? AND `holder_address` = ?"
	rows, err := wrappedQuery(query, status.ID, holder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	lb, err := scanLastBalance(rows)
	if err != nil {
		return nil, err
	}

	return lb, nil
}

// PutLastBalance inserts or updates the holder's balance row.
func (s *Store) PutLastBalance(status *scan.Status, lb *scan.LastBalance) error {
	return transact(func(tx *sql.Tx) error {
		const query = "INSERT INTO `last_balance` (`status_id`, `holder_address`, `balance`, `end_block`, `end_block_time`) VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE `balance` = VALUES(`balance`), `end_block` = VALUES(`end_block`), `end_block_time` = VALUES(`end_block_time`)"
		_, err := tx.Exec(query,
			status.ID,
			lb.HolderAddress,
			lb.Balance.String(),
			lb.EndBlock,
			lb.EndBlockTime,
		)
		return err
	})
}

// DeleteLastBalance removes the holder's balance row.
func (s *Store) DeleteLastBalance(status *scan.Status, holder string) error {
	return transact(func(tx *sql.Tx) error {
		const query = "DELETE FROM `last_balance` WHERE `status_id` = ? AND `holder_address` = ? LIMIT 1"
		_, err := tx.Exec(query, status.ID, holder)
		return err
	})
}

// HoldersFrom returns the holders whose balance row ends at or after
// fromBlock. A rescan starting at fromBlock invalidates these rows.
func (s *Store) HoldersFrom(status *scan.Status, fromBlock int64) ([]string, error) {
	const query = "SELECT `holder_address` FROM `last_balance` WHERE `status_id` = ? AND `end_block` >= ?"
	rows, err := wrappedQuery(query, status.ID, fromBlock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holders := []string{}

	for rows.Next() {
		holder := ""
		if err := rows.Scan(&holder); err != nil {
			return nil, err
		}

		holders = append(holders, holder)
	}

	return holders, rows.Err()
}

// GetLastBalances returns every holder's balance row for the token,
// largest balances first. This is the view downstream reporting reads.
func GetLastBalances(status *scan.Status) ([]*scan.LastBalance, error) {
	const query = "SELECT `holder_address`, `balance`, `end_block`, `end_block_time` FROM `last_balance` WHERE `status_id` = ? ORDER BY `balance` DESC"
	rows, err := wrappedQuery(query, status.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*scan.LastBalance{}

	for rows.Next() {
		lb, err := scanLastBalance(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, lb)
	}

	return result, rows.Err()
}

// CountHolders returns the number of holders with a balance row.
func CountHolders(status *scan.Status) (int64, error) {
	const query = "SELECT COUNT(*) FROM `last_balance` WHERE `status_id` = ?"
	rows, err := wrappedQuery(query, status.ID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}

	return count, rows.Err()
}

func scanLastBalance(rows *sql.Rows) (*scan.LastBalance, error) {
	lb := scan.LastBalance{}
	balanceStr := ""

	err := rows.Scan(
		&lb.HolderAddress,
		&balanceStr,
		&lb.EndBlock,
		&lb.EndBlockTime,
	)
	if err != nil {
		return nil, err
	}

	lb.Balance = util.StrToBigInt(balanceStr)

	return &lb, nil
}
