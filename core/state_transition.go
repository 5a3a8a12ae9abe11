package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"purchasechain/core/events"
	"purchasechain/core/state"
	"purchasechain/core/types"
	"purchasechain/native/purchase"
	"purchasechain/observability"
	"purchasechain/storage"
)

// StateProcessor applies signed transactions to ledger state. Each
// transaction runs against a speculative fork of the state; the fork is only
// committed when every sub-step succeeds, so a failure of any leg leaves the
// canonical state byte-for-byte unchanged.
type StateProcessor struct {
	manager *state.Manager
	engine  *purchase.Engine
	events  []types.Event
}

// collectingEmitter gathers engine events for the processor so they are only
// surfaced when the surrounding transaction commits.
type collectingEmitter struct {
	collected []*types.Event
}

func (c *collectingEmitter) Emit(evt events.Event) {
	type eventCarrier interface {
		Event() *types.Event
	}
	if carrier, ok := evt.(eventCarrier); ok && carrier.Event() != nil {
		c.collected = append(c.collected, carrier.Event())
	}
}

// NewStateProcessor wires a processor over the provided database with the
// supplied purchase engine.
func NewStateProcessor(db storage.Database, engine *purchase.Engine) (*StateProcessor, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if engine == nil {
		return nil, fmt.Errorf("core: purchase engine required")
	}
	return &StateProcessor{
		manager: state.NewManager(db),
		engine:  engine,
		events:  make([]types.Event, 0),
	}, nil
}

// Manager exposes the canonical state manager for read paths (RPC queries,
// genesis application).
func (sp *StateProcessor) Manager() *state.Manager { return sp.manager }

// Events returns the events emitted by committed transactions so far.
func (sp *StateProcessor) Events() []types.Event {
	out := make([]types.Event, len(sp.events))
	copy(out, sp.events)
	return out
}

// initializePurchaseParams is the JSON payload of a TxTypeInitializePurchase
// transaction.
type initializePurchaseParams struct {
	Price        string `json:"price"`
	AssetID      string `json:"assetId"`
	ItemName     string `json:"itemName,omitempty"`
	NameCapacity uint16 `json:"nameCapacity"`
	StartTime    int64  `json:"startTime,omitempty"`
	EndTime      int64  `json:"endTime,omitempty"`
	Nonce        uint64 `json:"nonce"`
}

// agreementRefParams is the JSON payload of payment and completion
// transactions: a bare reference to the agreement record.
type agreementRefParams struct {
	AgreementID string `json:"agreementId"`
}

// ApplyTransaction verifies the signature and nonce, dispatches the operation
// against a state fork and commits the fork on success. The recovered signer
// is the only identity any handler trusts; an unsigned or tampered
// transaction never reaches a handler.
func (sp *StateProcessor) ApplyTransaction(tx *types.Transaction) (err error) {
	op := txOpName(tx.Type)
	defer func() {
		observability.TxMetrics().Observe(op, err)
	}()

	sender, err := tx.From()
	if err != nil {
		return fmt.Errorf("invalid transaction signature: %w", err)
	}

	fork := sp.manager.Fork()

	senderAcc, err := fork.GetAccount(sender)
	if err != nil {
		return err
	}
	if tx.Nonce != senderAcc.Nonce {
		return fmt.Errorf("invalid nonce: got %d, want %d", tx.Nonce, senderAcc.Nonce)
	}
	senderAcc.Nonce++
	if err := fork.PutAccount(sender, senderAcc); err != nil {
		return err
	}

	collector := &collectingEmitter{}
	sp.engine.SetState(fork)
	sp.engine.SetEmitter(collector)
	defer sp.engine.SetEmitter(nil)

	switch tx.Type {
	case types.TxTypeTransfer:
		err = sp.applyTransfer(fork, sender, tx)
	case types.TxTypeInitializePurchase:
		err = sp.applyInitializePurchase(sender, tx)
	case types.TxTypeMakePayment:
		err = sp.applyMakePayment(sender, tx)
	case types.TxTypeCompletePurchase:
		err = sp.applyCompletePurchase(sender, tx)
	default:
		err = fmt.Errorf("unknown transaction type: %d", tx.Type)
	}
	if err != nil {
		return err
	}

	if err = fork.Commit(); err != nil {
		return err
	}
	for _, evt := range collector.collected {
		sp.events = append(sp.events, *evt)
	}
	return nil
}

func (sp *StateProcessor) applyTransfer(fork *state.Manager, sender []byte, tx *types.Transaction) error {
	if len(tx.To) == 0 {
		return fmt.Errorf("transfer requires a recipient")
	}
	if tx.Value == nil || tx.Value.Sign() <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	fromAcc, err := fork.GetAccount(sender)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(tx.Value) < 0 {
		return fmt.Errorf("insufficient balance for transfer")
	}
	toAcc, err := fork.GetAccount(tx.To)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, tx.Value)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, tx.Value)
	if err := fork.PutAccount(sender, fromAcc); err != nil {
		return err
	}
	return fork.PutAccount(tx.To, toAcc)
}

func (sp *StateProcessor) applyInitializePurchase(sender []byte, tx *types.Transaction) error {
	var params initializePurchaseParams
	if err := json.Unmarshal(tx.Data, &params); err != nil {
		return fmt.Errorf("invalid initialize payload: %w", err)
	}
	price, ok := new(big.Int).SetString(params.Price, 10)
	if !ok {
		return fmt.Errorf("invalid price: %q", params.Price)
	}
	assetID, err := parseHash32(params.AssetID)
	if err != nil {
		return fmt.Errorf("invalid asset id: %w", err)
	}
	seller, err := toAddress(sender)
	if err != nil {
		return err
	}
	_, err = sp.engine.Initialize(seller, price, assetID, params.ItemName, params.NameCapacity, params.StartTime, params.EndTime, params.Nonce)
	return err
}

func (sp *StateProcessor) applyMakePayment(sender []byte, tx *types.Transaction) error {
	id, err := agreementRef(tx.Data)
	if err != nil {
		return err
	}
	buyer, err := toAddress(sender)
	if err != nil {
		return err
	}
	return sp.engine.Pay(id, buyer)
}

func (sp *StateProcessor) applyCompletePurchase(sender []byte, tx *types.Transaction) error {
	id, err := agreementRef(tx.Data)
	if err != nil {
		return err
	}
	caller, err := toAddress(sender)
	if err != nil {
		return err
	}
	return sp.engine.Complete(id, caller)
}

func agreementRef(data []byte) ([32]byte, error) {
	var params agreementRefParams
	if err := json.Unmarshal(data, &params); err != nil {
		return [32]byte{}, fmt.Errorf("invalid agreement reference: %w", err)
	}
	id, err := parseHash32(params.AgreementID)
	if err != nil {
		return [32]byte{}, fmt.Errorf("invalid agreement id: %w", err)
	}
	return id, nil
}

func parseHash32(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(value)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func toAddress(raw []byte) ([20]byte, error) {
	var out [20]byte
	if len(raw) != 20 {
		return out, fmt.Errorf("expected 20-byte address, got %d bytes", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func txOpName(t types.TxType) string {
	switch t {
	case types.TxTypeTransfer:
		return "transfer"
	case types.TxTypeInitializePurchase:
		return "initialize_purchase"
	case types.TxTypeMakePayment:
		return "make_payment"
	case types.TxTypeCompletePurchase:
		return "complete_purchase"
	default:
		return "unknown"
	}
}
