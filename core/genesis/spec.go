package genesis

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"time"

	"purchasechain/core/state"
	"purchasechain/core/types"
	"purchasechain/crypto"
	"purchasechain/native/assets"
)

// GenesisSpec describes the initial ledger contents: native balances and the
// unique assets that purchases will trade.
type GenesisSpec struct {
	GenesisTime string            `json:"genesisTime"`
	ChainID     *uint64           `json:"chainId,omitempty"`
	Alloc       map[string]string `json:"alloc"`  // bech32 addr -> PUR amount
	Assets      []AssetSpec       `json:"assets"` // initial asset grants

	genesisTimestamp time.Time
}

// AssetSpec grants ownership of one unique asset at genesis.
type AssetSpec struct {
	ID    string `json:"id"`    // 32-byte hex identifier
	Owner string `json:"owner"` // bech32 address
}

// Load reads and validates a genesis spec from disk.
func Load(path string) (*GenesisSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	spec := new(GenesisSpec)
	if err := json.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks every field without touching state.
func (s *GenesisSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("genesis: nil spec")
	}
	ts, err := time.Parse(time.RFC3339, s.GenesisTime)
	if err != nil {
		return fmt.Errorf("genesis: invalid genesisTime: %w", err)
	}
	s.genesisTimestamp = ts
	for addr, amount := range s.Alloc {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("genesis: alloc address %q: %w", addr, err)
		}
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok || value.Sign() < 0 {
			return fmt.Errorf("genesis: alloc amount %q for %s must be a non-negative integer", amount, addr)
		}
	}
	seen := make(map[string]struct{}, len(s.Assets))
	for _, asset := range s.Assets {
		raw, err := hex.DecodeString(asset.ID)
		if err != nil || len(raw) != 32 {
			return fmt.Errorf("genesis: asset id %q must be 32 hex-encoded bytes", asset.ID)
		}
		if _, ok := seen[asset.ID]; ok {
			return fmt.Errorf("genesis: duplicate asset id %s", asset.ID)
		}
		seen[asset.ID] = struct{}{}
		if _, err := crypto.DecodeAddress(asset.Owner); err != nil {
			return fmt.Errorf("genesis: asset owner %q: %w", asset.Owner, err)
		}
	}
	return nil
}

// Timestamp returns the parsed genesis time. Validate must have succeeded.
func (s *GenesisSpec) Timestamp() time.Time {
	return s.genesisTimestamp
}

// Apply writes the genesis allocation into a fresh state manager. Iteration
// order is sorted for determinism even though the flat store does not hash
// its contents today.
func (s *GenesisSpec) Apply(manager *state.Manager) error {
	if err := s.Validate(); err != nil {
		return err
	}
	addrs := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		decoded, err := crypto.DecodeAddress(addr)
		if err != nil {
			return err
		}
		value, _ := new(big.Int).SetString(s.Alloc[addr], 10)
		account := &types.Account{Balance: value}
		if err := manager.PutAccount(decoded.Bytes(), account); err != nil {
			return err
		}
	}
	for _, spec := range s.Assets {
		raw, _ := hex.DecodeString(spec.ID)
		var id [32]byte
		copy(id[:], raw)
		ownerAddr, err := crypto.DecodeAddress(spec.Owner)
		if err != nil {
			return err
		}
		var owner [20]byte
		copy(owner[:], ownerAddr.Bytes())
		if err := manager.AssetPut(&assets.Asset{ID: id, Owner: owner}); err != nil {
			return err
		}
	}
	return nil
}
