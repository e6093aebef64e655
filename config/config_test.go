package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"lendledger/crypto"
)

func testOracleAddress() string {
	buf := make([]byte, 20)
	buf[0] = 0x42
	return crypto.NewAddress(crypto.LedgerPrefix, buf).String()
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress == "" || cfg.DataDir == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
}

func TestLoadParsesOracleSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := fmt.Sprintf(`ListenAddress = "0.0.0.0:9000"
DataDir = "/tmp/ledger"
TrustedOracle = %q
PriceFeedURL = "https://prices.example/eth"
FallbackUSD = 1500.5
FallbackINR = 120000.0
ScorerCommand = ["python3", "model.py"]

[[BootstrapMints]]
Token = "CLTX"
Address = %q
Amount = "1000"
`, testOracleAddress(), testOracleAddress())
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	addr, err := cfg.OracleAddress()
	if err != nil {
		t.Fatalf("oracle address: %v", err)
	}
	if addr.IsZero() {
		t.Fatal("expected decoded oracle address")
	}
	if len(cfg.ScorerCommand) != 2 || cfg.ScorerCommand[0] != "python3" {
		t.Fatalf("unexpected scorer command %v", cfg.ScorerCommand)
	}
	if len(cfg.BootstrapMints) != 1 || cfg.BootstrapMints[0].Token != "CLTX" {
		t.Fatalf("unexpected bootstrap mints %v", cfg.BootstrapMints)
	}
}

func TestLoadRejectsBadOracleAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`TrustedOracle = "garbage"`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}
