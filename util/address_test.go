package util

import (
	"testing"
)

func TestChecksumAddress(t *testing.T) {
	checksummed := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}

	for _, addr := range checksummed {
		lower := "0x" + toLower(addr[2:])
		if ChecksumAddress(lower) != addr {
			t.Errorf("ChecksumAddress(%s) = %s, want %s", lower, ChecksumAddress(lower), addr)
		}
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'F' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestAddressValid(t *testing.T) {
	valid := []string{
		// Correct checksum.
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		// All lowercase carries no checksum.
		"0xde709f2102306220921060314715629080e2fb77",
	}

	invalid := []string{
		// Checksum casing broken.
		"0x5Aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		// Too short.
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAe",
		// Not hex.
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAzz",
		"",
	}

	for _, addr := range valid {
		if !AddressValid(addr) {
			t.Errorf("Address %s is valid but [AddressValid] returns invalid result", addr)
		}
	}

	for _, addr := range invalid {
		if AddressValid(addr) {
			t.Errorf("Address %s is invalid but [AddressValid] returns valid result", addr)
		}
	}
}

func TestIsZeroAddress(t *testing.T) {
	if !IsZeroAddress("0x0000000000000000000000000000000000000000") {
		t.Error("Zero address not recognized")
	}

	if IsZeroAddress("0x0000000000000000000000000000000000000001") {
		t.Error("Non-zero address recognized as zero")
	}
}
