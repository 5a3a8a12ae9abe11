package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"purchasechain/crypto"
	"purchasechain/native/purchase"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	GenesisFile      string `toml:"GenesisFile"`
	NodeKeystorePath string `toml:"NodeKeystorePath"`
	NetworkName      string `toml:"NetworkName"`

	Purchase PurchaseConfig `toml:"Purchase"`
}

// PurchaseConfig selects how the purchase engine settles payments and moves
// asset custody. Both values are fixed for the lifetime of the node.
type PurchaseConfig struct {
	Settlement    string `toml:"Settlement"`
	Custody       string `toml:"Custody"`
	EnforceWindow bool   `toml:"EnforceWindow"`
}

// Load loads the configuration from the given path, creating a default file
// (and node keystore) on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if _, err := cfg.Strategy(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// Strategy resolves the [Purchase] section into an engine strategy.
func (c *Config) Strategy() (purchase.Strategy, error) {
	settlement, err := purchase.ParseSettlementMode(c.Purchase.Settlement)
	if err != nil {
		return purchase.Strategy{}, err
	}
	custody, err := purchase.ParseCustodyMode(c.Purchase.Custody)
	if err != nil {
		return purchase.Strategy{}, err
	}
	return purchase.Strategy{Settlement: settlement, Custody: custody}, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "purchase-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./purchase-data"
	}
	defaults := purchase.DefaultStrategy()
	if strings.TrimSpace(cfg.Purchase.Settlement) == "" {
		cfg.Purchase.Settlement = defaults.Settlement.String()
	}
	if strings.TrimSpace(cfg.Purchase.Custody) == "" {
		cfg.Purchase.Custody = defaults.Custody.String()
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.NodeKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.NodeKeystorePath != keystorePath {
		cfg.NodeKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:  ":8080",
		DataDir:     "./purchase-data",
		GenesisFile: "",
		NetworkName: "purchase-local",
	}
	cfg.NodeKeystorePath = keystorePath
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "node.keystore")
}
