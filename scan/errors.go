package scan

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrScanInProgress is returned when another scan run holds the
	// advisory lock of the same (network, token).
	ErrScanInProgress = errors.New("scan already in progress for this token")

	// ErrInvalidProgress is returned when a commit would move the
	// checkpoint backwards outside of an explicit rescan.
	ErrInvalidProgress = errors.New("checkpoint cannot move backwards")
)

// ConfigError reports invalid scan parameters. It is always raised
// before any chain or storage I/O.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "scan config error: " + e.Reason
}

// ChunkError reports a chunk whose fetch failed after the retry budget
// was exhausted. The checkpoint stays at the last committed chunk.
type ChunkError struct {
	Start int64
	End   int64
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("scan chunk [%d, %d) failed: %v", e.Start, e.End, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// NegativeBalanceError reports a holder whose delta history sums below
// zero. The holder's last balance row is left untouched.
type NegativeBalanceError struct {
	Holder  string
	Balance *big.Int
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("negative balance %s detected for holder %s", e.Balance, e.Holder)
}

// IsTransient reports whether err is a retryable ledger failure.
func IsTransient(err error) bool {
	for err != nil {
		if t, ok := err.(interface{ Transient() bool }); ok {
			return t.Transient()
		}
		err = errors.Unwrap(err)
	}

	return false
}
