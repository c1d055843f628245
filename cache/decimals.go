package cache

import (
	"sync"
)

var (
	decimalsCache = make(map[string]uint8)
	decimalsLock  sync.Mutex
)

// GetDecimals returns the cached decimals value of the token contract.
func GetDecimals(token string) (uint8, bool) {
	decimalsLock.Lock()
	defer decimalsLock.Unlock()

	decimals, ok := decimalsCache[token]
	return decimals, ok
}

// SetDecimals caches the decimals value of the token contract.
// Decimals are immutable on chain, so entries never expire.
func SetDecimals(token string, decimals uint8) {
	decimalsLock.Lock()
	defer decimalsLock.Unlock()

	decimalsCache[token] = decimals
}
