package main

import (
	"flag"
	_ "net/http/pprof"
	"tokenscan/config"
	"tokenscan/db"
	"tokenscan/log"
	"tokenscan/mail"
	"tokenscan/tasks"
)

var enableMail bool

func init() {
	flag.BoolVar(&enableMail, "mail", false, "If mail alert is enabled")
}

func main() {
	flag.Parse()

	log.Init()
	config.Load(true)
	db.Init()
	mail.Init(enableMail)

	defer mail.AlertIfErr()

	tasks.Run()

	select {}
}
