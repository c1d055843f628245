package rpc

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"tokenscan/config"
	"tokenscan/mail"
	"tokenscan/util"

	"github.com/valyala/fasthttp"
)

var (
	// servers stores all rpc urls with their chain head height.
	// For those (temporarily)unaccessable servers,
	// their height will be set to -1.
	// These servers' heights will be refreshed timely.
	servers map[string]int64
	sLock   sync.Mutex

	// BestHeight indicates the highest block height seen on any server.
	BestHeight util.SafeCounter
)

// ServerInfo is the struct to store an rpc url with its current height.
type ServerInfo struct {
	url    string
	height int64
}

// getServer randomly returns one of rpc servers whose height is at least minHeight.
func getServer(minHeight int64) (string, bool) {
	if minHeight < 0 {
		err := fmt.Errorf("minHeight(%d) cannot lower than zero", minHeight)
		panic(err)
	}

	sLock.Lock()
	defer sLock.Unlock()

	candidates := []string{}

	for url, height := range servers {
		if height >= minHeight {
			// Always prefer a local rpc server if valid.
			if strings.Contains(url, "127.0.0.1") ||
				strings.Contains(url, "localhost") {
				candidates = append(candidates, url)
			}

			candidates = append(candidates, url)
		}
	}

	l := len(candidates)
	if l == 0 {
		return "", false
	}

	return candidates[rand.Intn(l)], true
}

func serverUnavailable(url string) {
	sLock.Lock()
	defer sLock.Unlock()

	// Incase server changed(e.g., reloaded due to config file change).
	if _, ok := servers[url]; ok {
		servers[url] = -1
	}
}

// PrintServerStatus prints the known height of every configured server.
func PrintServerStatus() {
	sLock.Lock()
	defer sLock.Unlock()

	for host, height := range servers {
		fmt.Printf("%s: %d\n", host, height)
	}
}

// TraceBestHeight keeps the server height table fresh.
func TraceBestHeight() {
	defer mail.AlertIfErr()

	for {
		RefreshServers()

		time.Sleep(3 * time.Second)
	}
}

// RefreshServers updates heights of all rpc servers.
func RefreshServers() int64 {
	// It takes time to get heights.
	serverInfos := getHeights()

	sLock.Lock()

	servers = serverInfos
	bestHeight := int64(0)
	for _, height := range serverInfos {
		if bestHeight < height {
			bestHeight = height
		}
	}
	BestHeight.Set(bestHeight)

	sLock.Unlock()

	return bestHeight
}

// getHeights gets the current chain head of all rpc servers.
func getHeights() map[string]int64 {
	rpcs := config.GetRPCs()
	c := make(chan ServerInfo, len(rpcs))

	for _, url := range rpcs {
		go func(url string, c chan<- ServerInfo) {
			height, _ := getHeightFrom(url)
			c <- ServerInfo{
				url:    url,
				height: height,
			}
		}(url, c)
	}

	serverInfos := make(map[string]int64)

	for range rpcs {
		s := <-c
		serverInfos[s.url] = s.height
	}

	close(c)

	return serverInfos
}

// getHeightFrom returns the current chain head of the given rpc server.
func getHeightFrom(url string) (int64, error) {
	requestBody := newRequestBody("eth_blockNumber", []interface{}{})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetRequestURI(url)
	req.SetBody(requestBody)

	if err := client.DoTimeout(req, resp, 5*time.Second); err != nil {
		return -1, err
	}

	respData := blockNumberResponse{}
	if err := json.Unmarshal(resp.Body(), &respData); err != nil {
		return -1, err
	}

	if respData.Error != nil || respData.Result == "" {
		return -1, fmt.Errorf("no block number from %s", url)
	}

	return util.HexToInt64(respData.Result), nil
}
