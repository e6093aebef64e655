package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"lendledger/crypto"
)

// Config describes one ledger node. TrustedOracle is the only identity
// allowed to write risk scores and whitelist entries; it is fixed for the
// lifetime of the node.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	TrustedOracle string `toml:"TrustedOracle"`

	// Oracle collaborator settings, used by riskoracled.
	NodeURL        string   `toml:"NodeURL"`
	PriceFeedURL   string   `toml:"PriceFeedURL"`
	FallbackUSD    float64  `toml:"FallbackUSD"`
	FallbackINR    float64  `toml:"FallbackINR"`
	ScorerCommand  []string `toml:"ScorerCommand"`

	// Bootstrap token supply minted at startup when the store is empty.
	BootstrapMints []BootstrapMint `toml:"BootstrapMints"`
}

// BootstrapMint seeds a token balance at genesis.
type BootstrapMint struct {
	Token   string `toml:"Token"`
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

const defaultConfig = `ListenAddress = "127.0.0.1:8671"
DataDir = "./lendledger-data"
TrustedOracle = ""

NodeURL = "http://127.0.0.1:8671"
PriceFeedURL = ""
FallbackUSD = 2000.0
FallbackINR = 165000.0
ScorerCommand = ["python3", "ai_risk_model.py"]
`

// Load reads the configuration, writing a commented default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if _, err := toml.Decode(defaultConfig, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = "127.0.0.1:8671"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./lendledger-data"
	}
	if strings.TrimSpace(c.NodeURL) == "" {
		c.NodeURL = "http://" + c.ListenAddress
	}
	if c.FallbackUSD == 0 {
		c.FallbackUSD = 2000.0
	}
	if c.FallbackINR == 0 {
		c.FallbackINR = 165000.0
	}
}

// Validate checks the fields the node cannot run without.
func (c *Config) Validate() error {
	oracleAddr := strings.TrimSpace(c.TrustedOracle)
	if oracleAddr != "" {
		if _, err := crypto.DecodeAddress(oracleAddr); err != nil {
			return fmt.Errorf("config: invalid TrustedOracle: %w", err)
		}
	}
	for i, mint := range c.BootstrapMints {
		if strings.TrimSpace(mint.Token) == "" {
			return fmt.Errorf("config: BootstrapMints[%d]: token required", i)
		}
		if _, err := crypto.DecodeAddress(strings.TrimSpace(mint.Address)); err != nil {
			return fmt.Errorf("config: BootstrapMints[%d]: invalid address: %w", i, err)
		}
	}
	return nil
}

// OracleAddress decodes the trusted oracle identity. The zero address is
// returned when none is configured; the ledger then rejects every oracle
// write.
func (c *Config) OracleAddress() (crypto.Address, error) {
	trimmed := strings.TrimSpace(c.TrustedOracle)
	if trimmed == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(trimmed)
}
