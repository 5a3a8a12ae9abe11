package genesis

import (
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"purchasechain/core/state"
	"purchasechain/crypto"
	"purchasechain/storage"
)

func testSpec(t *testing.T) (*GenesisSpec, crypto.Address, [32]byte) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := key.PubKey().Address()
	var assetID [32]byte
	assetID[0] = 0xA1
	spec := &GenesisSpec{
		GenesisTime: "2024-01-01T00:00:00Z",
		Alloc:       map[string]string{owner.String(): "1000000"},
		Assets:      []AssetSpec{{ID: hex.EncodeToString(assetID[:]), Owner: owner.String()}},
	}
	return spec, owner, assetID
}

func TestValidate(t *testing.T) {
	spec, owner, _ := testSpec(t)
	if err := spec.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if spec.Timestamp().IsZero() {
		t.Fatalf("timestamp must be parsed by validation")
	}

	cases := []struct {
		name   string
		mutate func(*GenesisSpec)
	}{
		{"bad time", func(s *GenesisSpec) { s.GenesisTime = "yesterday" }},
		{"bad alloc address", func(s *GenesisSpec) { s.Alloc = map[string]string{"nonsense": "1"} }},
		{"negative amount", func(s *GenesisSpec) { s.Alloc = map[string]string{owner.String(): "-5"} }},
		{"non-numeric amount", func(s *GenesisSpec) { s.Alloc = map[string]string{owner.String(): "lots"} }},
		{"short asset id", func(s *GenesisSpec) { s.Assets[0].ID = "abcd" }},
		{"bad asset owner", func(s *GenesisSpec) { s.Assets[0].Owner = "nonsense" }},
		{"duplicate asset", func(s *GenesisSpec) { s.Assets = append(s.Assets, s.Assets[0]) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, _, _ := testSpec(t)
			tc.mutate(spec)
			if err := spec.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	spec, owner, assetID := testSpec(t)
	manager := state.NewManager(storage.NewMemDB())
	if err := spec.Apply(manager); err != nil {
		t.Fatalf("apply: %v", err)
	}

	acc, err := manager.GetAccount(owner.Bytes())
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acc.Balance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("balance = %s, want 1000000", acc.Balance)
	}

	asset, ok := manager.AssetGet(assetID)
	if !ok {
		t.Fatalf("asset missing after apply")
	}
	var want [20]byte
	copy(want[:], owner.Bytes())
	if asset.Owner != want {
		t.Fatalf("asset owner mismatch")
	}
}

func TestLoad(t *testing.T) {
	spec, _, _ := testSpec(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	raw := `{
  "genesisTime": "` + spec.GenesisTime + `",
  "alloc": {"` + firstKey(spec.Alloc) + `": "42"},
  "assets": []
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Alloc) != 1 {
		t.Fatalf("alloc not loaded")
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("missing file must fail")
	}
	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte("{"), 0o644); err != nil {
		t.Fatalf("write bad genesis: %v", err)
	}
	if _, err := Load(badPath); err == nil {
		t.Fatalf("malformed JSON must fail")
	}
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
