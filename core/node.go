package core

import (
	"fmt"
	"sync"

	"purchasechain/core/genesis"
	"purchasechain/core/state"
	"purchasechain/core/types"
	"purchasechain/native/assets"
	"purchasechain/native/purchase"
	"purchasechain/storage"
)

var genesisAppliedKey = []byte("meta/genesis-applied")

// Node owns the canonical ledger state and serialises transaction
// application. RPC handlers and tooling talk to the node, never to the
// processor directly.
type Node struct {
	mu          sync.RWMutex
	processor   *StateProcessor
	networkName string
}

// NewNode builds a node over the given database with the supplied purchase
// engine.
func NewNode(db storage.Database, engine *purchase.Engine, networkName string) (*Node, error) {
	processor, err := NewStateProcessor(db, engine)
	if err != nil {
		return nil, err
	}
	return &Node{processor: processor, networkName: networkName}, nil
}

// NetworkName reports the configured network identifier.
func (n *Node) NetworkName() string { return n.networkName }

// ApplyGenesis seeds the ledger from the given spec. It is a no-op when the
// database already carries a genesis marker, so restarting a node with the
// same data directory is safe.
func (n *Node) ApplyGenesis(spec *genesis.GenesisSpec) error {
	if spec == nil {
		return fmt.Errorf("core: nil genesis spec")
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	manager := n.processor.Manager()
	applied, err := manager.KVGet(genesisAppliedKey, nil)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	if err := spec.Apply(manager); err != nil {
		return err
	}
	return manager.KVPut(genesisAppliedKey, true)
}

// SubmitTransaction applies one signed transaction against canonical state.
func (n *Node) SubmitTransaction(tx *types.Transaction) error {
	if tx == nil {
		return fmt.Errorf("core: nil transaction")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.processor.ApplyTransaction(tx)
}

// GetAccount returns the account record for the given 20-byte address. Unknown
// addresses yield a zero-balance account.
func (n *Node) GetAccount(addr []byte) (*types.Account, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.processor.Manager().GetAccount(addr)
}

// GetAgreement returns the purchase agreement with the given identifier.
func (n *Node) GetAgreement(id [32]byte) (*purchase.Agreement, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.processor.Manager().AgreementRequire(id)
}

// GetAsset returns the asset with the given identifier.
func (n *Node) GetAsset(id [32]byte) (*assets.Asset, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.processor.Manager().AssetRequire(id)
}

// Events returns the events emitted by committed transactions so far.
func (n *Node) Events() []types.Event {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.processor.Events()
}

// WithState runs fn against the canonical state manager under the node's read
// lock.
func (n *Node) WithState(fn func(*state.Manager) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return fn(n.processor.Manager())
}
