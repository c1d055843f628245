/*
Expected schema:

CREATE TABLE `scan_status` (
	`id` INT UNSIGNED NOT NULL AUTO_INCREMENT,
	`network` VARCHAR(16) NOT NULL,
	`token_address` CHAR(42) NOT NULL,
	`decimals` TINYINT UNSIGNED NOT NULL,
	`last_scanned_block` BIGINT NOT NULL DEFAULT -1,
	PRIMARY KEY (`id`),
	UNIQUE KEY `uk_network_token` (`network`, `token_address`)
);

CREATE TABLE `balance_delta` (
	`id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	`status_id` INT UNSIGNED NOT NULL,
	`holder_address` CHAR(42) NOT NULL,
	`block_num` BIGINT NOT NULL,
	`amount_delta` DECIMAL(65, 0) NOT NULL,
	`block_time` BIGINT UNSIGNED NOT NULL,
	PRIMARY KEY (`id`),
	KEY `idx_holder_block` (`status_id`, `holder_address`, `block_num`),
	KEY `idx_block` (`status_id`, `block_num`)
);

CREATE TABLE `last_balance` (
	`id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	`status_id` INT UNSIGNED NOT NULL,
	`holder_address` CHAR(42) NOT NULL,
	`balance` DECIMAL(65, 0) NOT NULL,
	`end_block` BIGINT NOT NULL,
	`end_block_time` BIGINT UNSIGNED NOT NULL,
	PRIMARY KEY (`id`),
	UNIQUE KEY `uk_status_holder` (`status_id`, `holder_address`)
);

To restart a token from scratch, execute the following sqls:

DELETE FROM `balance_delta` WHERE `status_id` = <id>;
DELETE FROM `last_balance` WHERE `status_id` = <id>;
UPDATE `scan_status` SET `last_scanned_block` = -1 WHERE `id` = <id>;
*/

package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"tokenscan/scan"
)

// Store implements scan.Store backed by mysql.
type Store struct {
	mu sync.Mutex
	// locks pins one connection per held advisory lock,
	// GET_LOCK is connection scoped.
	locks map[string]*sql.Conn
}

// NewStore returns the mysql backed store.
func NewStore() *Store {
	return &Store{locks: make(map[string]*sql.Conn)}
}

// GetStatus returns the scan status row of (network, token), or nil.
func (s *Store) GetStatus(network, token string) (*scan.Status, error) {
	const query = "SELECT `id`, `network`, `token_address`, `decimals`, `last_scanned_block` FROM `scan_status` WHERE `network` = ? AND `token_address` = ?"
	rows, err := wrappedQuery(query, network, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	status := scan.Status{}
	err = rows.Scan(
		&status.ID,
		&status.Network,
		&status.TokenAddress,
		&status.Decimals,
		&status.LastScannedBlock,
	)
	if err != nil {
		return nil, err
	}

	return &status, nil
}

// CreateStatus inserts a new scan status row with an empty checkpoint.
func (s *Store) CreateStatus(network, token string, decimals uint8) (*scan.Status, error) {
	err := transact(func(tx *sql.Tx) error {
		const query = "INSERT INTO `scan_status` (`network`, `token_address`, `decimals`, `last_scanned_block`) VALUES (?, ?, ?, -1)"
		_, err := tx.Exec(query, network, token, decimals)
		return err
	})

	if err != nil {
		// Another process may have won the insert race.
		if existing, getErr := s.GetStatus(network, token); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	return s.GetStatus(network, token)
}

// TryLock acquires the advisory scan lock of (network, token) without
// blocking. The lock lives on a pinned connection until Unlock.
func (s *Store) TryLock(network, token string) (bool, error) {
	name := lockName(network, token)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", name).Scan(&got); err != nil {
		conn.Close()
		return false, err
	}

	if !got.Valid || got.Int64 != 1 {
		conn.Close()
		return false, nil
	}

	s.mu.Lock()
	s.locks[name] = conn
	s.mu.Unlock()

	return true, nil
}

// Unlock releases the advisory scan lock of (network, token).
func (s *Store) Unlock(network, token string) error {
	name := lockName(network, token)

	s.mu.Lock()
	conn := s.locks[name]
	delete(s.locks, name)
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer conn.Close()

	_, err := conn.ExecContext(context.Background(), "DO RELEASE_LOCK(?)", name)
	return err
}

func lockName(network, token string) string {
	// GET_LOCK names are capped at 64 chars.
	return fmt.Sprintf("tokenscan:%s:%s", network, token)
}
