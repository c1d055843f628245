package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// blockTimeCacheSize bounds the timestamp cache. A chunk touches at
// most chunk_size distinct blocks, so this covers many chunks.
const blockTimeCacheSize = 16384

var blockTimes *lru.Cache

func init() {
	var err error

	blockTimes, err = lru.New(blockTimeCacheSize)
	if err != nil {
		panic(err)
	}
}

// GetBlockTime returns the cached unix timestamp of the given block.
func GetBlockTime(blockNum int64) (uint64, bool) {
	val, ok := blockTimes.Get(blockNum)
	if !ok {
		return 0, false
	}

	return val.(uint64), true
}

// SetBlockTime caches the unix timestamp of the given block.
func SetBlockTime(blockNum int64, blockTime uint64) {
	blockTimes.Add(blockNum, blockTime)
}

// PurgeBlockTimesFrom drops cached timestamps of all blocks at or after
// fromBlock. A reorged block re-appears with a new timestamp, so rescans
// must not be served the old one.
func PurgeBlockTimesFrom(fromBlock int64) {
	for _, key := range blockTimes.Keys() {
		if key.(int64) >= fromBlock {
			blockTimes.Remove(key)
		}
	}
}
