package state

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"purchasechain/storage"
)

// Manager reads and writes ledger state records. Every record is RLP encoded
// and stored under a keccak256-hashed, prefixed key so unrelated record kinds
// can never collide.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	accountPrefix   = []byte("account:")
	agreementPrefix = []byte("agreement:")
	assetPrefix     = []byte("asset:")
)

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Fork returns a manager whose writes are buffered in an overlay on top of
// this manager's database. The fork is committed with Commit or discarded by
// dropping it; either way the parent state is untouched until Commit.
func (m *Manager) Fork() *Manager {
	return &Manager{db: storage.NewOverlay(m.db)}
}

// Commit flushes a forked manager's buffered writes into its base database.
// Calling Commit on an unforked manager is a programming error.
func (m *Manager) Commit() error {
	overlay, ok := m.db.(*storage.Overlay)
	if !ok {
		return fmt.Errorf("state: commit on unforked manager")
	}
	return overlay.Flush()
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 to match the layout of the typed records.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
