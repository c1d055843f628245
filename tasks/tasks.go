package tasks

import (
	"tokenscan/config"
	"tokenscan/db"
	"tokenscan/log"
	"tokenscan/rpc"
)

// Run starts one scanning goroutine per configured token plus the rpc
// height tracer. Tokens are independent and sync fully in parallel;
// chunk ordering is guaranteed per token only.
func Run() {
	store := db.NewStore()
	ledger := rpc.NewLedger()

	bestHeight := rpc.RefreshServers()

	log.Printf("Current params for balance scanning:\n")
	log.Printf("network = %s\n", config.GetNetwork())
	log.Printf("rpc best height = %d\n", bestHeight)
	log.Printf("chunk size = %d, rescan window = %d\n",
		config.GetChunkSize(), config.GetRescanBlocks())

	for _, token := range config.GetTokens() {
		go scanToken(store, ledger, token)
	}

	go rpc.TraceBestHeight()
}
