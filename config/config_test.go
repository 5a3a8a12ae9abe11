package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"purchasechain/native/purchase"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "purchase-local", cfg.NetworkName)
	require.Equal(t, "escrow", cfg.Purchase.Settlement)
	require.Equal(t, "holding", cfg.Purchase.Custody)
	require.False(t, cfg.Purchase.EnforceWindow)

	_, err = os.Stat(path)
	require.NoError(t, err, "config file must be persisted")
	_, err = os.Stat(cfg.NodeKeystorePath)
	require.NoError(t, err, "node keystore must be created")
}

func TestLoadParsesPurchaseSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keystorePath := filepath.Join(dir, "node.keystore")
	contents := `RPCAddress = "0.0.0.0:9000"
DataDir = "./data"
GenesisFile = "genesis.json"
NodeKeystorePath = "` + keystorePath + `"
NetworkName = "testnet"

[Purchase]
Settlement = "direct"
Custody = "delegated"
EnforceWindow = true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, "testnet", cfg.NetworkName)
	require.True(t, cfg.Purchase.EnforceWindow)

	strategy, err := cfg.Strategy()
	require.NoError(t, err)
	require.Equal(t, purchase.SettlementDirect, strategy.Settlement)
	require.Equal(t, purchase.CustodyDelegated, strategy.Custody)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keystorePath := filepath.Join(dir, "node.keystore")
	contents := `NodeKeystorePath = "` + keystorePath + `"

[Purchase]
Settlement = "cheque"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "settlement")
}
