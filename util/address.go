package util

import (
	"encoding/hex"
	"strings"
)

// IsHexAddress checks if the given string is a well-formed
// 20-byte hex address with 0x prefix.
func IsHexAddress(addr string) bool {
	if len(addr) != 42 {
		return false
	}

	if addr[:2] != "0x" && addr[:2] != "0X" {
		return false
	}

	_, err := hex.DecodeString(addr[2:])
	return err == nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of the given address.
// Panics if addr is not a well-formed hex address.
func ChecksumAddress(addr string) string {
	if !IsHexAddress(addr) {
		panic("not a hex address: " + addr)
	}

	lower := strings.ToLower(addr[2:])
	hash := hex.EncodeToString(Keccak256([]byte(lower)))

	checksummed := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c -= 'a' - 'A'
		}
		checksummed[i] = c
	}

	return "0x" + string(checksummed)
}

// AddressValid checks if address is well-formed and,
// when mixed-case, carries a correct EIP-55 checksum.
func AddressValid(addr string) bool {
	if !IsHexAddress(addr) {
		return false
	}

	body := addr[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}

	return ChecksumAddress(addr) == addr
}

// IsZeroAddress checks if the given address is the zero address,
// used as the counterparty of mints and burns.
func IsZeroAddress(addr string) bool {
	if !IsHexAddress(addr) {
		return false
	}

	for _, c := range addr[2:] {
		if c != '0' {
			return false
		}
	}

	return true
}
