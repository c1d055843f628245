package rpc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"tokenscan/log"

	eParser "github.com/go-errors/errors"
	"github.com/valyala/fasthttp"
)

const requestTimeout = 20 * time.Second

var client = &fasthttp.Client{}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// jsonRPCResponse holds the envelope fields of every rpc response.
type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Error   *rpcError `json:"error"`
}

// Error wraps a failed rpc exchange. Transport level failures are
// retryable; most node-reported errors are not.
type Error struct {
	URL       string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool {
	return e.Retryable
}

func newRequestBody(method string, params []interface{}) []byte {
	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		panic(err)
	}

	return body
}

// rpcCall posts one JSON-RPC request to a server whose height is at
// least minHeight and decodes the response into target.
func rpcCall(minHeight int64, method string, params []interface{}, target interface{}) error {
	requestBody := newRequestBody(method, params)

	url, ok := getServer(minHeight)
	if !ok {
		return &Error{
			Err:       fmt.Errorf("no rpc server at height %d or above", minHeight),
			Retryable: true,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetRequestURI(url)
	req.SetBody(requestBody)

	if err := client.DoTimeout(req, resp, requestTimeout); err != nil {
		log.Error.Println(err)
		serverUnavailable(url)
		return &Error{URL: url, Err: err, Retryable: true}
	}

	bodyBytes := resp.Body()

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		log.Error.Println(eParser.Wrap(err, 0).ErrorStack())
		log.Error.Printf("Request body: %s\n", requestBody)
		log.Error.Printf("Response: %s\n", bodyBytes)
		return &Error{URL: url, Err: err, Retryable: false}
	}

	return nil
}

// nodeError turns an error reported by the node itself into *Error.
// Load-shedding responses stay retryable.
func nodeError(e *rpcError) *Error {
	retryable := e.Code == -32005 ||
		strings.Contains(strings.ToLower(e.Message), "timeout")

	return &Error{
		Err:       fmt.Errorf("node error %d: %s", e.Code, e.Message),
		Retryable: retryable,
	}
}
