package purchase

import (
	"math/big"
	"strings"
	"testing"
)

func TestStatusTransitionsAreForwardOnly(t *testing.T) {
	next, ok := StatusItemNotTransferred.Next()
	if !ok || next != StatusPaymentDone {
		t.Fatalf("expected payment_done after item_not_transferred, got %s (%v)", next, ok)
	}
	next, ok = StatusPaymentDone.Next()
	if !ok || next != StatusPurchaseCompleted {
		t.Fatalf("expected purchase_completed after payment_done, got %s (%v)", next, ok)
	}
	if _, ok := StatusPurchaseCompleted.Next(); ok {
		t.Fatalf("purchase_completed must be terminal")
	}
	if AgreementStatus(9).Valid() {
		t.Fatalf("out-of-range status must be invalid")
	}
}

func TestSanitizeAgreement(t *testing.T) {
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	base := func() *Agreement {
		return &Agreement{
			ID:           newTestAssetID(0x11),
			Seller:       seller,
			Price:        big.NewInt(100),
			AssetID:      newTestAssetID(0xA1),
			ItemName:     "item",
			NameCapacity: 16,
			Status:       StatusItemNotTransferred,
			Availability: AvailabilityActive,
		}
	}

	if _, err := SanitizeAgreement(nil); err == nil {
		t.Fatalf("nil agreement must be rejected")
	}

	cases := []struct {
		name   string
		mutate func(*Agreement)
	}{
		{"zero id", func(a *Agreement) { a.ID = [32]byte{} }},
		{"zero seller", func(a *Agreement) { a.Seller = [20]byte{} }},
		{"negative price", func(a *Agreement) { a.Price = big.NewInt(-1) }},
		{"capacity above maximum", func(a *Agreement) { a.NameCapacity = MaxNameCapacity + 1 }},
		{"name beyond capacity", func(a *Agreement) { a.ItemName = strings.Repeat("x", 17) }},
		{"invalid status", func(a *Agreement) { a.Status = AgreementStatus(42) }},
		{"invalid availability", func(a *Agreement) { a.Availability = AssetAvailability(42) }},
		{"buyer before payment", func(a *Agreement) { a.Buyer = &buyer }},
		{"paid without buyer", func(a *Agreement) { a.Status = StatusPaymentDone }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := base()
			tc.mutate(a)
			if _, err := SanitizeAgreement(a); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	a := base()
	a.ItemName = "  padded  "
	sanitized, err := SanitizeAgreement(a)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.ItemName != "padded" {
		t.Fatalf("expected trimmed item name, got %q", sanitized.ItemName)
	}
	if a.ItemName != "  padded  " {
		t.Fatalf("sanitize must not mutate its input")
	}
}

func TestCloneIsDeep(t *testing.T) {
	buyer := newTestAddress(0x02)
	a := &Agreement{
		ID:           newTestAssetID(0x11),
		Seller:       newTestAddress(0x01),
		Buyer:        &buyer,
		Price:        big.NewInt(100),
		Status:       StatusPaymentDone,
		Availability: AvailabilitySold,
	}
	clone := a.Clone()
	clone.Price.SetInt64(999)
	clone.Buyer[0] = 0xFF
	if a.Price.Int64() != 100 {
		t.Fatalf("clone shares price")
	}
	if a.Buyer[0] != 0x02 {
		t.Fatalf("clone shares buyer")
	}
}

func TestAgreementIDIsDeterministic(t *testing.T) {
	seller := newTestAddress(0x01)
	assetID := newTestAssetID(0xA1)
	first := AgreementID(seller, assetID, 1)
	if first != AgreementID(seller, assetID, 1) {
		t.Fatalf("same inputs must yield the same id")
	}
	if first == AgreementID(seller, assetID, 2) {
		t.Fatalf("different nonce must yield a different id")
	}
	if first == AgreementID(newTestAddress(0x02), assetID, 1) {
		t.Fatalf("different seller must yield a different id")
	}
}

func TestAuthorityIsDeterministicAndDistinct(t *testing.T) {
	id := AgreementID(newTestAddress(0x01), newTestAssetID(0xA1), 1)
	authority := Authority(id)
	if authority == ([20]byte{}) {
		t.Fatalf("authority must not be the zero address")
	}
	if authority != Authority(id) {
		t.Fatalf("authority must be deterministic")
	}
	other := AgreementID(newTestAddress(0x01), newTestAssetID(0xA1), 2)
	if authority == Authority(other) {
		t.Fatalf("distinct agreements must have distinct authorities")
	}
}

func TestStrategyParsing(t *testing.T) {
	if mode, err := ParseSettlementMode(" Escrow "); err != nil || mode != SettlementEscrow {
		t.Fatalf("ParseSettlementMode = %v, %v", mode, err)
	}
	if mode, err := ParseCustodyMode("DELEGATED"); err != nil || mode != CustodyDelegated {
		t.Fatalf("ParseCustodyMode = %v, %v", mode, err)
	}
	if _, err := ParseSettlementMode("cheque"); err == nil {
		t.Fatalf("unknown settlement mode must fail")
	}
	if _, err := ParseCustodyMode("vault"); err == nil {
		t.Fatalf("unknown custody mode must fail")
	}
	if err := (Strategy{Settlement: SettlementMode(9)}).Validate(); err == nil {
		t.Fatalf("invalid settlement mode must fail validation")
	}
	if err := DefaultStrategy().Validate(); err != nil {
		t.Fatalf("default strategy must validate: %v", err)
	}
}
