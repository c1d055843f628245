package util

import (
	"fmt"
	"math/big"
	"strings"
)

// HexToBigInt returns big.Int of the given 0x-prefixed
// big-endian hex string.
func HexToBigInt(hexStr string) *big.Int {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	if len(hexStr) == 0 {
		return big.NewInt(0)
	}

	z, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		panic(fmt.Errorf("failed to parse hex quantity: %s", hexStr))
	}
	return z
}

// HexToInt64 returns int64 of the given 0x-prefixed hex string.
func HexToInt64(hexStr string) int64 {
	return HexToBigInt(hexStr).Int64()
}

// HexToUint64 returns uint64 of the given 0x-prefixed hex string.
func HexToUint64(hexStr string) uint64 {
	return HexToBigInt(hexStr).Uint64()
}

// Int64ToHex returns the 0x-prefixed hex form of the given block number.
func Int64ToHex(v int64) string {
	return fmt.Sprintf("0x%x", v)
}

// StrToBigInt returns big.Int of the given decimal integer string.
func StrToBigInt(str string) *big.Int {
	if len(str) == 0 {
		return big.NewInt(0)
	}

	val, ok := new(big.Int).SetString(str, 10)
	if !ok {
		panic(fmt.Errorf("failed to parse decimal integer: %s", str))
	}
	return val
}
