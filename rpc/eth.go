package rpc

import (
	"fmt"
	"tokenscan/scan"
	"tokenscan/util"
)

const (
	// transferTopic is keccak256("Transfer(address,address,uint256)"),
	// the topic0 of every ERC-20 transfer log.
	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

	// decimalsSelector is the 4-byte selector of decimals().
	decimalsSelector = "0x313ce567"
)

// RawLog is one event log as returned by eth_getLogs.
type RawLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
	Removed     bool     `json:"removed"`
}

// RawBlockHeader holds the block header fields this scanner needs.
type RawBlockHeader struct {
	Hash      string `json:"hash"`
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

type logsResponse struct {
	jsonRPCResponse
	Result []RawLog `json:"result"`
}

type blockResponse struct {
	jsonRPCResponse
	Result *RawBlockHeader `json:"result"`
}

type callResponse struct {
	jsonRPCResponse
	Result string `json:"result"`
}

type blockNumberResponse struct {
	jsonRPCResponse
	Result string `json:"result"`
}

// GetTransferLogs returns the token's transfer logs in
// [fromBlock, toBlockExcl), in ledger order.
func GetTransferLogs(token string, fromBlock, toBlockExcl int64) ([]RawLog, error) {
	filter := map[string]interface{}{
		"address":   token,
		"fromBlock": util.Int64ToHex(fromBlock),
		"toBlock":   util.Int64ToHex(toBlockExcl - 1),
		"topics":    []string{transferTopic},
	}

	respData := logsResponse{}
	if err := rpcCall(toBlockExcl-1, "eth_getLogs", []interface{}{filter}, &respData); err != nil {
		return nil, err
	}
	if respData.Error != nil {
		return nil, nodeError(respData.Error)
	}

	return respData.Result, nil
}

// GetBlockTime returns the unix timestamp of the given block.
func GetBlockTime(blockNum int64) (uint64, error) {
	params := []interface{}{util.Int64ToHex(blockNum), false}

	respData := blockResponse{}
	if err := rpcCall(blockNum, "eth_getBlockByNumber", params, &respData); err != nil {
		return 0, err
	}
	if respData.Error != nil {
		return 0, nodeError(respData.Error)
	}

	// The serving node claimed this height; a missing block means it
	// is lagging and another attempt may land elsewhere.
	if respData.Result == nil {
		return 0, &Error{
			Err:       fmt.Errorf("block %d not found", blockNum),
			Retryable: true,
		}
	}

	return util.HexToUint64(respData.Result.Timestamp), nil
}

// CallDecimals asks the token contract for its decimals value.
func CallDecimals(token string) (uint8, error) {
	msg := map[string]interface{}{
		"to":   token,
		"data": decimalsSelector,
	}

	respData := callResponse{}
	if err := rpcCall(0, "eth_call", []interface{}{msg, "latest"}, &respData); err != nil {
		return 0, err
	}
	if respData.Error != nil {
		return 0, nodeError(respData.Error)
	}

	if respData.Result == "" || respData.Result == "0x" {
		return 0, &Error{Err: fmt.Errorf("contract %s has no decimals()", token)}
	}

	decimals := util.HexToBigInt(respData.Result)
	if !decimals.IsInt64() || decimals.Int64() < 0 || decimals.Int64() > 77 {
		return 0, &Error{Err: fmt.Errorf("absurd decimals value %s for %s", decimals, token)}
	}

	return uint8(decimals.Int64()), nil
}

// ParseTransfer decodes one transfer log into a TransferEvent.
func ParseTransfer(l RawLog) (scan.TransferEvent, error) {
	if len(l.Topics) != 3 || l.Topics[0] != transferTopic {
		return scan.TransferEvent{}, fmt.Errorf("not an ERC-20 transfer log: %s", l.TxHash)
	}

	from, err := topicAddress(l.Topics[1])
	if err != nil {
		return scan.TransferEvent{}, err
	}

	to, err := topicAddress(l.Topics[2])
	if err != nil {
		return scan.TransferEvent{}, err
	}

	return scan.TransferEvent{
		From:     from,
		To:       to,
		Amount:   util.HexToBigInt(l.Data),
		BlockNum: util.HexToInt64(l.BlockNumber),
	}, nil
}

// topicAddress extracts the address packed into the low 20 bytes of a
// 32-byte log topic.
func topicAddress(topic string) (string, error) {
	if len(topic) != 66 {
		return "", fmt.Errorf("malformed address topic: %s", topic)
	}

	addr := "0x" + topic[26:]
	if !util.IsHexAddress(addr) {
		return "", fmt.Errorf("malformed address topic: %s", topic)
	}

	return util.ChecksumAddress(addr), nil
}
