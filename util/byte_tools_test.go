package util

import (
	"testing"
)

func TestHexToBigInt(t *testing.T) {
	cases := map[string]string{
		"0x0":  "0",
		"0x10": "16",
		"":     "0",
		"0x00000000000000000000000000000000000000000000003635c9adc5dea00000": "1000000000000000000000",
	}

	for in, want := range cases {
		if got := HexToBigInt(in).String(); got != want {
			t.Errorf("HexToBigInt(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestInt64ToHex(t *testing.T) {
	if Int64ToHex(0) != "0x0" {
		t.Error("Int64ToHex(0) should be 0x0")
	}

	if Int64ToHex(1444843) != "0x160beb" {
		t.Errorf("Int64ToHex(1444843) = %s, want 0x160beb", Int64ToHex(1444843))
	}
}

func TestStrToBigInt(t *testing.T) {
	if StrToBigInt("-400").String() != "-400" {
		t.Error("StrToBigInt failed on negative value")
	}

	if StrToBigInt("").Sign() != 0 {
		t.Error("StrToBigInt of empty string should be zero")
	}
}
