package util

import (
	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the legacy Keccak-256 hash of input data bytes.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
