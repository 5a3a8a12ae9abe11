package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"purchasechain/native/purchase"
)

// storedAgreement is the RLP wire form of an agreement. RLP has no signed
// integers or optional fields, so timestamps are widened to uint64 and the
// buyer is a presence flag plus value.
type storedAgreement struct {
	ID           [32]byte
	Seller       [20]byte
	HasBuyer     bool
	Buyer        [20]byte
	Price        *big.Int
	AssetID      [32]byte
	ItemName     string
	NameCapacity uint16
	StartTime    uint64
	EndTime      uint64
	CreatedAt    uint64
	Status       uint8
	Availability uint8
}

// AgreementPut validates and persists a purchase agreement.
func (m *Manager) AgreementPut(a *purchase.Agreement) error {
	sanitized, err := purchase.SanitizeAgreement(a)
	if err != nil {
		return err
	}
	stored := &storedAgreement{
		ID:           sanitized.ID,
		Seller:       sanitized.Seller,
		Price:        sanitized.Price,
		AssetID:      sanitized.AssetID,
		ItemName:     sanitized.ItemName,
		NameCapacity: sanitized.NameCapacity,
		StartTime:    uint64(sanitized.StartTime),
		EndTime:      uint64(sanitized.EndTime),
		CreatedAt:    uint64(sanitized.CreatedAt),
		Status:       uint8(sanitized.Status),
		Availability: uint8(sanitized.Availability),
	}
	if sanitized.Buyer != nil {
		stored.HasBuyer = true
		stored.Buyer = *sanitized.Buyer
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.db.Put(prefixedKey(agreementPrefix, sanitized.ID[:]), encoded)
}

// AgreementGet loads an agreement by ID. The boolean reports existence.
func (m *Manager) AgreementGet(id [32]byte) (*purchase.Agreement, bool) {
	data, err := m.db.Get(prefixedKey(agreementPrefix, id[:]))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedAgreement)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	agreement := &purchase.Agreement{
		ID:           stored.ID,
		Seller:       stored.Seller,
		Price:        big.NewInt(0),
		AssetID:      stored.AssetID,
		ItemName:     stored.ItemName,
		NameCapacity: stored.NameCapacity,
		StartTime:    int64(stored.StartTime),
		EndTime:      int64(stored.EndTime),
		CreatedAt:    int64(stored.CreatedAt),
		Status:       purchase.AgreementStatus(stored.Status),
		Availability: purchase.AssetAvailability(stored.Availability),
	}
	if stored.Price != nil {
		agreement.Price = new(big.Int).Set(stored.Price)
	}
	if stored.HasBuyer {
		buyer := stored.Buyer
		agreement.Buyer = &buyer
	}
	return agreement, true
}

// AgreementRequire loads an agreement by ID, translating absence into the
// package's typed error.
func (m *Manager) AgreementRequire(id [32]byte) (*purchase.Agreement, error) {
	agreement, ok := m.AgreementGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: %x", purchase.ErrAgreementNotFound, id)
	}
	return agreement, nil
}
