package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"tokenscan/log"
	"tokenscan/scan"
	"tokenscan/util"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type config struct {
	// MySQL configs.
	User     string
	Password string
	Hostname string
	Port     string
	Database string

	// Label sets log output prefix.
	Label string

	// Network is the ledger instance all configured tokens live on.
	Network string

	RPCs []string `mapstructure:"rpc_url"`

	// Tokens lists the token contracts to scan.
	Tokens []TokenConfig

	// ChunkSize sets how many blocks one scan chunk covers.
	ChunkSize int64 `mapstructure:"chunk_size"`

	// RescanBlocks sets how many trailing blocks each scan round
	// re-processes to absorb shallow reorganizations.
	RescanBlocks int64 `mapstructure:"rescan_blocks"`

	// Workers sets the number of goroutines that will be created for balance reconciliation.
	// Recommend value: 3.
	Workers int

	// AliyunMail is an optional config which will be used in mail alert package.
	AliyunMail AliyunMailConfig `mapstructure:"aliyun_mail"`
}

// TokenConfig describes one token contract to scan.
type TokenConfig struct {
	Address    string
	StartBlock int64 `mapstructure:"start_block"`
}

// AliyunMailConfig is the struct for aliyun mail configs.
type AliyunMailConfig struct {
	AccountName     string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Receiver        []string
}

var cfg config

// Load reads and validates the config file, then watches it for changes.
func Load(display bool) {
	viper.SetConfigName("config")
	viper.AddConfigPath("./config")
	// Incase test cases require loading configs.
	viper.AddConfigPath("../config")

	if err := load(display); err != nil {
		panic(err)
	}

	if err := check(); err != nil {
		panic(err)
	}

	update()

	log.UpdatePrefix(GetLabel())

	viper.WatchConfig()
	viper.OnConfigChange(onConfigChange)
}

func load(display bool) error {
	err := viper.ReadInConfig()
	if err != nil {
		return err
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return err
	}

	if display {
		configContent, _ := json.MarshalIndent(cfg, "", "    ")
		log.Println(string(configContent))
	}

	return nil
}

func update() {
	for i := 0; i < len(cfg.RPCs); i++ {
		rpc := cfg.RPCs[i]
		if !strings.HasPrefix(rpc, "http") {
			cfg.RPCs[i] = "http://" + rpc
		}
	}

	// Store token addresses in their canonical checksummed form.
	for i := 0; i < len(cfg.Tokens); i++ {
		cfg.Tokens[i].Address = util.ChecksumAddress(cfg.Tokens[i].Address)
	}
}

// GetDbConnStr returns mysql connection string.
func GetDbConnStr() string {
	str := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s",
		cfg.User,
		cfg.Password,
		cfg.Hostname,
		cfg.Port,
		cfg.Database,
	)

	params := []string{
		"charset=utf8",
		"parseTime=True",
		"loc=Local",
		"maxAllowedPacket=52428800",
		"multiStatements=True",
	}

	if len(params) > 0 {
		str = fmt.Sprintf("%s?%s", str, strings.Join(params, "&"))
	}

	return str
}

// GetLabel returns custome label as console output prefix.
func GetLabel() string {
	return cfg.Label
}

// GetNetwork returns the configured network identifier.
func GetNetwork() string {
	return cfg.Network
}

// GetRPCs returns all rpc urls from config.
func GetRPCs() []string {
	return cfg.RPCs
}

// GetTokens returns the configured token contracts.
func GetTokens() []TokenConfig {
	return cfg.Tokens
}

// GetChunkSize returns the scan chunk size in blocks.
func GetChunkSize() int64 {
	return cfg.ChunkSize
}

// GetRescanBlocks returns the trailing reorg rescan window in blocks.
func GetRescanBlocks() int64 {
	return cfg.RescanBlocks
}

// GetWorkers returns the number of reconciliation goroutines.
func GetWorkers() int {
	return cfg.Workers
}

// LoadAliyunMailConfig performs a basic check on aliyun mail config.
func LoadAliyunMailConfig() error {
	if err := checkAliyunMail(); err != nil {
		return err
	}

	return nil
}

// GetAliyunMailConfig returns aliyun mail configs.
func GetAliyunMailConfig() AliyunMailConfig {
	return cfg.AliyunMail
}

func check() error {
	if err := checkWorker(); err != nil {
		return err
	}

	if err := checkRPCs(); err != nil {
		return err
	}

	if err := checkScanParams(); err != nil {
		return err
	}

	return nil
}

func checkWorker() error {
	if cfg.Workers < 1 {
		return errors.New("value of 'workers' must greater than or equal to 1")
	}
	return nil
}

func checkRPCs() error {
	if len(cfg.RPCs) < 1 {
		return errors.New("at least 1 rpc server url must be set")
	}

	for _, rpc := range cfg.RPCs {
		if strings.HasPrefix(rpc, "http") {
			u, err := url.Parse(rpc)
			if err != nil {
				return err
			}
			rpc = u.Host
		}

		_, _, err := net.SplitHostPort(rpc)
		if err != nil {
			return err
		}
	}

	return nil
}

func checkScanParams() error {
	if !scan.KnownNetwork(cfg.Network) {
		return fmt.Errorf("unrecognized network: %s", cfg.Network)
	}

	if len(cfg.Tokens) < 1 {
		return errors.New("at least 1 token contract must be set")
	}

	for _, token := range cfg.Tokens {
		if !util.AddressValid(token.Address) {
			return fmt.Errorf("malformed token address: %s", token.Address)
		}

		if token.StartBlock < 0 {
			return fmt.Errorf("start_block of token %s cannot be negative", token.Address)
		}
	}

	if cfg.ChunkSize < 1 {
		return errors.New("value of 'chunk_size' must greater than or equal to 1")
	}

	if cfg.RescanBlocks < 0 {
		return errors.New("value of 'rescan_blocks' cannot be negative")
	}

	return nil
}

func checkAliyunMail() error {
	m := cfg.AliyunMail

	if m.AccountName == "" {
		return errors.New("aliyun mail account name cannot be empty")
	}

	if m.Region == "" {
		return errors.New("aliyun mail region cannot be empty")
	}

	if m.AccessKeyID == "" {
		return errors.New("aliyun mail accessKeyID cannot be empty")
	}

	if m.AccessKeySecret == "" {
		return errors.New("aliyun mail accessKeySecret cannot be empty")
	}

	if len(m.Receiver) == 0 {
		return errors.New("aliyun mail receiver cannot be empty")
	}

	return nil
}

func onConfigChange(e fsnotify.Event) {
	log.Printf("Config file change detected: %s", e.Name)

	const stdErr = "Failed to read new configuration, current configuration stay unchanged"

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	if err := load(true); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	if err := check(); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	update()

	log.UpdatePrefix(GetLabel())
}
