package rpc

import (
	"math/big"
	"testing"
)

func TestParseTransfer(t *testing.T) {
	raw := RawLog{
		Address: "0x6b175474e89094c44da98b954eedeac495271d0f",
		Topics: []string{
			transferTopic,
			"0x000000000000000000000000fb6916095ca1df60bb79ce92ce3ea74c37c5d359",
			"0x000000000000000000000000dbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
		},
		Data:        "0x00000000000000000000000000000000000000000000003635c9adc5dea00000",
		BlockNumber: "0x160beb",
		TxHash:      "0xc920b2192e74eda4ca6140510813aa40fef1767d00c152aa6f8027c24bdf14f2",
	}

	e, err := ParseTransfer(raw)
	if err != nil {
		t.Fatalf("ParseTransfer failed: %v", err)
	}

	if e.From != "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359" {
		t.Errorf("From = %s, checksum not applied", e.From)
	}
	if e.To != "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB" {
		t.Errorf("To = %s, checksum not applied", e.To)
	}

	want, _ := new(big.Int).SetString("1000000000000000000000", 10)
	if e.Amount.Cmp(want) != 0 {
		t.Errorf("Amount = %s, want %s", e.Amount, want)
	}
	if e.BlockNum != 1444843 {
		t.Errorf("BlockNum = %d, want 1444843", e.BlockNum)
	}
}

func TestParseTransferRejectsOtherTopics(t *testing.T) {
	raw := RawLog{
		Topics: []string{
			// Approval(address,address,uint256)
			"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925",
			"0x000000000000000000000000fb6916095ca1df60bb79ce92ce3ea74c37c5d359",
			"0x000000000000000000000000dbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
		},
	}

	if _, err := ParseTransfer(raw); err == nil {
		t.Error("Non-transfer log should be rejected")
	}
}

func TestNodeErrorClassification(t *testing.T) {
	if !nodeError(&rpcError{Code: -32005, Message: "limit exceeded"}).Transient() {
		t.Error("Load shedding should be retryable")
	}

	if !nodeError(&rpcError{Code: -32000, Message: "query timeout exceeded"}).Transient() {
		t.Error("Node timeout should be retryable")
	}

	if nodeError(&rpcError{Code: -32602, Message: "invalid params"}).Transient() {
		t.Error("Invalid params must not be retryable")
	}
}
