package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"purchasechain/native/assets"
)

type storedAsset struct {
	ID          [32]byte
	Owner       [20]byte
	HasDelegate bool
	Delegate    [20]byte
}

// AssetPut validates and persists an asset record.
func (m *Manager) AssetPut(a *assets.Asset) error {
	sanitized, err := assets.Sanitize(a)
	if err != nil {
		return err
	}
	stored := &storedAsset{ID: sanitized.ID, Owner: sanitized.Owner}
	if sanitized.Delegate != nil {
		stored.HasDelegate = true
		stored.Delegate = *sanitized.Delegate
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.db.Put(prefixedKey(assetPrefix, sanitized.ID[:]), encoded)
}

// AssetGet loads an asset by ID. The boolean reports existence.
func (m *Manager) AssetGet(id [32]byte) (*assets.Asset, bool) {
	data, err := m.db.Get(prefixedKey(assetPrefix, id[:]))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedAsset)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	asset := &assets.Asset{ID: stored.ID, Owner: stored.Owner}
	if stored.HasDelegate {
		delegate := stored.Delegate
		asset.Delegate = &delegate
	}
	return asset, true
}

// AssetRequire loads an asset by ID, translating absence into a typed error.
func (m *Manager) AssetRequire(id [32]byte) (*assets.Asset, error) {
	asset, ok := m.AssetGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: %x", assets.ErrNotFound, id)
	}
	return asset, nil
}
