package purchase

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"purchasechain/core/events"
	"purchasechain/core/types"
	"purchasechain/native/assets"
)

var errNilState = errors.New("purchase engine: state not configured")

// engineState is the slice of ledger state the engine needs. The concrete
// implementation lives in core/state; tests supply an in-memory mock.
type engineState interface {
	AgreementPut(*Agreement) error
	AgreementGet(id [32]byte) (*Agreement, bool)
	AssetPut(*assets.Asset) error
	AssetGet(id [32]byte) (*assets.Asset, bool)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type purchaseEvent struct {
	evt *types.Event
}

func (e purchaseEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e purchaseEvent) Event() *types.Event { return e.evt }

// Engine drives the purchase state machine against external ledger state.
// Every public method validates all of its preconditions before touching
// state, so a rejected call leaves no trace; the hosting transaction wraps
// the whole call in a speculative state fork for full atomicity of the
// mutation phase.
type Engine struct {
	state         engineState
	emitter       events.Emitter
	strategy      Strategy
	enforceWindow bool
	nowFn         func() int64
}

// NewEngine creates a purchase engine with a no-op emitter and the supplied
// settlement/custody strategy.
func NewEngine(strategy Strategy) (*Engine, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		emitter:  events.NoopEmitter{},
		strategy: strategy,
		nowFn:    func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetWindowEnforcement toggles the validity-window precondition on payment.
// The window fields are always stored; they are only consulted when this is
// enabled.
func (e *Engine) SetWindowEnforcement(enabled bool) { e.enforceWindow = enabled }

// Strategy returns the deployment strategy the engine was built with.
func (e *Engine) Strategy() Strategy { return e.strategy }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(purchaseEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadAgreement(id [32]byte) (*Agreement, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	agreement, ok := e.state.AgreementGet(id)
	if !ok {
		return nil, ErrAgreementNotFound
	}
	return agreement, nil
}

// transfer moves amount between two accounts. The amount moved is always the
// exact figure passed in; callers hand it the agreement price, never a
// buyer-declared amount.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("purchase: invalid transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	if fromAcc.Balance == nil || fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	if toAcc.Balance == nil {
		toAcc.Balance = big.NewInt(0)
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// Initialize creates a new purchase agreement and establishes the custody
// path for the traded asset. Only the asset's current owner may initialize,
// and the caller must be that seller. Re-submitting an identical definition
// returns the stored agreement; a colliding id with a different definition is
// rejected.
func (e *Engine) Initialize(seller [20]byte, price *big.Int, assetID [32]byte, itemName string, nameCapacity uint16, startTime, endTime int64, nonce uint64) (*Agreement, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("purchase: price must be positive")
	}
	if nameCapacity > MaxNameCapacity {
		return nil, fmt.Errorf("%w: declared capacity %d exceeds maximum %d", ErrAllocationFailure, nameCapacity, MaxNameCapacity)
	}
	if len(itemName) > int(nameCapacity) {
		return nil, fmt.Errorf("%w: item name needs %d bytes, capacity is %d", ErrAllocationFailure, len(itemName), nameCapacity)
	}
	// The idempotency lookup runs before the ownership check: under holding
	// custody the first Initialize moves the asset to the agreement authority,
	// so a re-submitted definition no longer sees the seller as owner.
	id := AgreementID(seller, assetID, nonce)
	if existing, ok := e.state.AgreementGet(id); ok {
		if existing.Seller != seller || existing.AssetID != assetID || existing.Price.Cmp(price) != 0 ||
			existing.ItemName != itemName || existing.StartTime != startTime || existing.EndTime != endTime {
			return nil, ErrDefinitionMismatch
		}
		return existing, nil
	}

	asset, ok := e.state.AssetGet(assetID)
	if !ok {
		return nil, fmt.Errorf("%w: %x", assets.ErrNotFound, assetID)
	}
	if asset.Owner != seller {
		return nil, fmt.Errorf("%w: seller does not own asset", ErrUnauthorized)
	}

	authority := Authority(id)
	switch e.strategy.Custody {
	case CustodyDelegated:
		if err := asset.Approve(seller, authority); err != nil {
			return nil, err
		}
	case CustodyHolding:
		if err := asset.Transfer(seller, authority); err != nil {
			return nil, err
		}
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}

	agreement := &Agreement{
		ID:           id,
		Seller:       seller,
		Buyer:        nil,
		Price:        new(big.Int).Set(price),
		AssetID:      assetID,
		ItemName:     itemName,
		NameCapacity: nameCapacity,
		StartTime:    startTime,
		EndTime:      endTime,
		CreatedAt:    e.now(),
		Status:       StatusItemNotTransferred,
		Availability: AvailabilityActive,
	}
	if err := e.state.AgreementPut(agreement); err != nil {
		return nil, err
	}
	e.emit(NewInitializedEvent(agreement))
	return agreement.Clone(), nil
}

// Pay settles the payment leg. The buyer must be distinct from the seller and
// must actually hold the price in available balance; the transaction-declared
// value plays no part in the check. On success the buyer is recorded, the
// status advances to PaymentDone and, in the delegated custody strategy, the
// asset is pulled to the buyer under the agreement's one-shot delegate.
func (e *Engine) Pay(id [32]byte, buyer [20]byte) error {
	agreement, err := e.loadAgreement(id)
	if err != nil {
		return err
	}
	switch agreement.Status {
	case StatusItemNotTransferred:
	case StatusPaymentDone:
		return ErrAlreadyPaid
	case StatusPurchaseCompleted:
		return ErrPurchaseAlreadyCompleted
	default:
		return fmt.Errorf("purchase: invalid status %d", agreement.Status)
	}
	if buyer == agreement.Seller {
		return fmt.Errorf("%w: buyer must be distinct from seller", ErrUnauthorized)
	}
	if e.enforceWindow {
		now := e.now()
		if now < agreement.StartTime || (agreement.EndTime > 0 && now >= agreement.EndTime) {
			return ErrOutsideWindow
		}
	}
	buyerAcc, err := e.state.GetAccount(buyer[:])
	if err != nil {
		return err
	}
	if buyerAcc.Balance == nil || buyerAcc.Balance.Cmp(agreement.Price) < 0 {
		return ErrInsufficientFunds
	}

	authority := Authority(id)
	var asset *assets.Asset
	if e.strategy.Custody == CustodyDelegated {
		// Validate the custody leg before moving any funds so a broken
		// delegate cannot strand a half-settled agreement.
		var ok bool
		asset, ok = e.state.AssetGet(agreement.AssetID)
		if !ok {
			return fmt.Errorf("%w: %x", assets.ErrNotFound, agreement.AssetID)
		}
		if asset.Delegate == nil || *asset.Delegate != authority {
			return assets.ErrNotDelegate
		}
	}

	payee := agreement.Seller
	if e.strategy.Settlement == SettlementEscrow {
		payee = authority
	}
	if err := e.transfer(buyer, payee, agreement.Price); err != nil {
		return err
	}

	if asset != nil {
		if err := asset.TransferByDelegate(authority, buyer); err != nil {
			return err
		}
		if err := e.state.AssetPut(asset); err != nil {
			return err
		}
	}

	buyerCopy := buyer
	agreement.Buyer = &buyerCopy
	agreement.Status = StatusPaymentDone
	agreement.Availability = AvailabilitySold
	if err := e.state.AgreementPut(agreement); err != nil {
		return err
	}
	e.emit(NewPaymentEvent(agreement))
	return nil
}

// Complete releases the remaining settlement leg and moves the agreement to
// its terminal state. In the direct-settlement deployment the seller must be
// the caller; in the escrow deployment either party may drive completion
// because the transfers run under the agreement's own authority. Completing
// twice is an error, never a no-op.
func (e *Engine) Complete(id [32]byte, caller [20]byte) error {
	agreement, err := e.loadAgreement(id)
	if err != nil {
		return err
	}
	switch agreement.Status {
	case StatusPaymentDone:
	case StatusItemNotTransferred:
		return ErrPaymentNotReceived
	case StatusPurchaseCompleted:
		return ErrPurchaseAlreadyCompleted
	default:
		return fmt.Errorf("purchase: invalid status %d", agreement.Status)
	}
	if agreement.Buyer == nil {
		return fmt.Errorf("purchase: agreement in status %s has no buyer", agreement.Status)
	}

	switch e.strategy.Settlement {
	case SettlementDirect:
		if caller != agreement.Seller {
			return fmt.Errorf("%w: completion requires the seller", ErrUnauthorized)
		}
	case SettlementEscrow:
		if caller != agreement.Seller && caller != *agreement.Buyer {
			return fmt.Errorf("%w: completion requires a party to the agreement", ErrUnauthorized)
		}
	}

	authority := Authority(id)
	if e.strategy.Settlement == SettlementEscrow {
		if err := e.transfer(authority, agreement.Seller, agreement.Price); err != nil {
			return err
		}
	}
	if e.strategy.Custody == CustodyHolding {
		asset, ok := e.state.AssetGet(agreement.AssetID)
		if !ok {
			return fmt.Errorf("%w: %x", assets.ErrNotFound, agreement.AssetID)
		}
		if err := asset.Transfer(authority, *agreement.Buyer); err != nil {
			return err
		}
		if err := e.state.AssetPut(asset); err != nil {
			return err
		}
	}

	agreement.Status = StatusPurchaseCompleted
	if err := e.state.AgreementPut(agreement); err != nil {
		return err
	}
	e.emit(NewCompletedEvent(agreement))
	return nil
}
