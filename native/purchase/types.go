package purchase

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AgreementStatus is the lifecycle state of a purchase agreement. The status
// only ever moves forward along the single legal path; re-entering a state is
// rejected explicitly rather than silently accepted, because a repeated
// transition would double-move funds or custody.
type AgreementStatus uint8

const (
	StatusItemNotTransferred AgreementStatus = iota
	StatusPaymentDone
	StatusPurchaseCompleted
)

// transitions is the closed table of legal forward steps. Anything not listed
// here is an illegal transition.
var transitions = map[AgreementStatus]AgreementStatus{
	StatusItemNotTransferred: StatusPaymentDone,
	StatusPaymentDone:        StatusPurchaseCompleted,
}

// Valid reports whether the status value is within the supported range.
func (s AgreementStatus) Valid() bool {
	switch s {
	case StatusItemNotTransferred, StatusPaymentDone, StatusPurchaseCompleted:
		return true
	default:
		return false
	}
}

// Next returns the sole legal successor status. The boolean is false for the
// terminal state.
func (s AgreementStatus) Next() (AgreementStatus, bool) {
	next, ok := transitions[s]
	return next, ok
}

func (s AgreementStatus) String() string {
	switch s {
	case StatusItemNotTransferred:
		return "item_not_transferred"
	case StatusPaymentDone:
		return "payment_done"
	case StatusPurchaseCompleted:
		return "purchase_completed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// AssetAvailability tracks the asset's market state independently of the
// payment state. Only the Active→Sold edge is driven by transitions;
// NotAvailable is stored but never read by the state machine.
type AssetAvailability uint8

const (
	AvailabilityActive AssetAvailability = iota
	AvailabilitySold
	AvailabilityNotAvailable
)

// Valid reports whether the availability value is within the supported range.
func (a AssetAvailability) Valid() bool {
	switch a {
	case AvailabilityActive, AvailabilitySold, AvailabilityNotAvailable:
		return true
	default:
		return false
	}
}

func (a AssetAvailability) String() string {
	switch a {
	case AvailabilityActive:
		return "active"
	case AvailabilitySold:
		return "sold"
	case AvailabilityNotAvailable:
		return "not_available"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// MaxNameCapacity bounds the capacity a creator may declare for the
// variable-length item name. Together with the fixed fields it caps the
// on-ledger record size; capacity is declared once and never resized.
const MaxNameCapacity = 256

// Agreement captures the persistent state of one bilateral purchase: who is
// selling which asset for what price, who (if anyone) has paid, and how far
// the exchange has progressed. Seller, price and asset are immutable after
// creation; the buyer is set exactly once when payment succeeds.
type Agreement struct {
	ID           [32]byte
	Seller       [20]byte
	Buyer        *[20]byte
	Price        *big.Int
	AssetID      [32]byte
	ItemName     string
	NameCapacity uint16
	StartTime    int64
	EndTime      int64
	CreatedAt    int64
	Status       AgreementStatus
	Availability AssetAvailability
}

// Clone returns a deep copy of the agreement so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Agreement) Clone() *Agreement {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Buyer != nil {
		buyer := *a.Buyer
		clone.Buyer = &buyer
	}
	if a.Price != nil {
		clone.Price = new(big.Int).Set(a.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeAgreement validates the supplied agreement and returns a cloned
// instance with a non-nil price and trimmed item name. The original value is
// not mutated.
func SanitizeAgreement(a *Agreement) (*Agreement, error) {
	if a == nil {
		return nil, fmt.Errorf("purchase: nil agreement")
	}
	clone := a.Clone()
	clone.ItemName = strings.TrimSpace(clone.ItemName)
	if clone.ID == ([32]byte{}) {
		return nil, fmt.Errorf("purchase: agreement id must not be zero")
	}
	if clone.Seller == ([20]byte{}) {
		return nil, fmt.Errorf("purchase: seller must not be zero")
	}
	if clone.Price == nil {
		clone.Price = big.NewInt(0)
	}
	if clone.Price.Sign() < 0 {
		return nil, fmt.Errorf("purchase: price must be non-negative")
	}
	if clone.NameCapacity > MaxNameCapacity {
		return nil, fmt.Errorf("purchase: name capacity %d exceeds maximum %d", clone.NameCapacity, MaxNameCapacity)
	}
	if len(clone.ItemName) > int(clone.NameCapacity) {
		return nil, fmt.Errorf("purchase: item name exceeds declared capacity %d", clone.NameCapacity)
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("purchase: invalid status: %d", clone.Status)
	}
	if !clone.Availability.Valid() {
		return nil, fmt.Errorf("purchase: invalid availability: %d", clone.Availability)
	}
	// Buyer is set if and only if the agreement has progressed past the
	// initial state.
	if (clone.Buyer == nil) != (clone.Status == StatusItemNotTransferred) {
		return nil, fmt.Errorf("purchase: buyer presence inconsistent with status %s", clone.Status)
	}
	return clone, nil
}

// AgreementID derives the deterministic identifier for an agreement from the
// seller, the traded asset and a caller-supplied nonce, so resubmitting the
// same initialization is recognisable without storing the nonce separately.
func AgreementID(seller [20]byte, assetID [32]byte, nonce uint64) [32]byte {
	var nonceBytes [8]byte
	for i := 0; i < 8; i++ {
		nonceBytes[7-i] = byte(nonce >> (8 * i))
	}
	return ethcrypto.Keccak256Hash(seller[:], assetID[:], nonceBytes[:])
}

// Authority derives the program-owned address that acts for the agreement:
// the escrow vault in escrow settlement and the custodial holder of the asset
// in holding custody. No key exists for it; it is exercised only inside
// engine transitions.
func Authority(id [32]byte) [20]byte {
	hash := ethcrypto.Keccak256([]byte("purchase-authority:"), id[:])
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
