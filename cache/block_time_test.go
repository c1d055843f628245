package cache

import (
	"testing"
)

func TestBlockTimeRoundTrip(t *testing.T) {
	SetBlockTime(100, 1500000100)

	blockTime, ok := GetBlockTime(100)
	if !ok || blockTime != 1500000100 {
		t.Errorf("GetBlockTime(100) = %d, %v, want 1500000100", blockTime, ok)
	}

	if _, ok := GetBlockTime(101); ok {
		t.Error("GetBlockTime of an unseen block should miss")
	}
}

func TestPurgeBlockTimesFrom(t *testing.T) {
	SetBlockTime(10, 1500000010)
	SetBlockTime(20, 1500000020)
	SetBlockTime(30, 1500000030)

	PurgeBlockTimesFrom(20)

	if _, ok := GetBlockTime(10); !ok {
		t.Error("Block before the purge point must survive")
	}

	for _, blockNum := range []int64{20, 30} {
		if _, ok := GetBlockTime(blockNum); ok {
			t.Errorf("Block %d should have been purged", blockNum)
		}
	}
}
