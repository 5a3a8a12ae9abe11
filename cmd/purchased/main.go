package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"purchasechain/config"
	"purchasechain/core"
	"purchasechain/core/genesis"
	"purchasechain/native/purchase"
	"purchasechain/observability/logging"
	"purchasechain/rpc"
	"purchasechain/storage"
)

const genesisPathEnv = "PURCHASE_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides PURCHASE_GENESIS and config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PURCHASE_ENV"))
	logger := logging.Setup("purchased", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	strategy, err := cfg.Strategy()
	if err != nil {
		logger.Error("Invalid purchase strategy", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	engine, err := purchase.NewEngine(strategy)
	if err != nil {
		logger.Error("Failed to construct purchase engine", slog.Any("error", err))
		os.Exit(1)
	}
	engine.SetWindowEnforcement(cfg.Purchase.EnforceWindow)

	node, err := core.NewNode(db, engine, cfg.NetworkName)
	if err != nil {
		logger.Error("Failed to construct node", slog.Any("error", err))
		os.Exit(1)
	}

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	if genesisPath != "" {
		spec, err := genesis.Load(genesisPath)
		if err != nil {
			panic(fmt.Sprintf("Failed to load genesis spec: %v", err))
		}
		if err := node.ApplyGenesis(spec); err != nil {
			panic(fmt.Sprintf("Failed to apply genesis spec: %v", err))
		}
		logger.Info("Genesis state ready", slog.String("path", genesisPath))
	}

	logger.Info("Node configured",
		slog.String("network", cfg.NetworkName),
		slog.String("settlement", strategy.Settlement.String()),
		slog.String("custody", strategy.Custody.String()),
		slog.Bool("enforceWindow", cfg.Purchase.EnforceWindow),
	)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// resolveGenesisPath picks the genesis source in flag > env > config order.
func resolveGenesisPath(flagValue, configValue string, lookup func(string) (string, bool)) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if envValue, ok := lookup(genesisPathEnv); ok {
		if trimmed := strings.TrimSpace(envValue); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(configValue)
}
