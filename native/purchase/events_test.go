package purchase_test

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"reflect"
	"testing"

	"purchasechain/core/types"
	purchasepkg "purchasechain/native/purchase"
)

func TestPurchaseEventsHaveDeterministicPayload(t *testing.T) {
	var id [32]byte
	copy(id[:], bytes.Repeat([]byte{0xAA}, 32))
	var seller [20]byte
	copy(seller[:], bytes.Repeat([]byte{0xBB}, 20))
	var buyer [20]byte
	copy(buyer[:], bytes.Repeat([]byte{0xCC}, 20))
	var assetID [32]byte
	copy(assetID[:], bytes.Repeat([]byte{0xDD}, 32))

	agreement := &purchasepkg.Agreement{
		ID:           id,
		Seller:       seller,
		Buyer:        &buyer,
		Price:        big.NewInt(42_000),
		AssetID:      assetID,
		ItemName:     "rare print",
		NameCapacity: 32,
		CreatedAt:    1_700_000_123,
		Status:       purchasepkg.StatusPaymentDone,
		Availability: purchasepkg.AvailabilitySold,
	}
	expected := map[string]string{
		"id":           hex.EncodeToString(id[:]),
		"seller":       hex.EncodeToString(seller[:]),
		"buyer":        hex.EncodeToString(buyer[:]),
		"assetId":      hex.EncodeToString(assetID[:]),
		"price":        "42000",
		"status":       "payment_done",
		"availability": "sold",
		"createdAt":    "1700000123",
		"itemName":     "rare print",
	}

	cases := []struct {
		name string
		fn   func(*purchasepkg.Agreement) *types.Event
		typ  string
	}{
		{"initialized", purchasepkg.NewInitializedEvent, purchasepkg.EventTypeInitialized},
		{"payment", purchasepkg.NewPaymentEvent, purchasepkg.EventTypePayment},
		{"completed", purchasepkg.NewCompletedEvent, purchasepkg.EventTypeCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt := tc.fn(agreement)
			if evt == nil {
				t.Fatalf("nil event")
			}
			if evt.Type != tc.typ {
				t.Fatalf("type = %s, want %s", evt.Type, tc.typ)
			}
			if !reflect.DeepEqual(evt.Attributes, expected) {
				t.Fatalf("attributes = %v, want %v", evt.Attributes, expected)
			}
		})
	}
}

func TestEventWithoutBuyerOmitsAttribute(t *testing.T) {
	var id [32]byte
	id[0] = 0x01
	var seller [20]byte
	seller[0] = 0x02
	agreement := &purchasepkg.Agreement{
		ID:     id,
		Seller: seller,
		Price:  big.NewInt(1),
	}
	evt := purchasepkg.NewInitializedEvent(agreement)
	if _, ok := evt.Attributes["buyer"]; ok {
		t.Fatalf("buyer attribute must be absent before payment")
	}
	if _, ok := evt.Attributes["itemName"]; ok {
		t.Fatalf("empty item name must be omitted")
	}
}

func TestEventTolerantOfNilAgreement(t *testing.T) {
	evt := purchasepkg.NewCompletedEvent(nil)
	if evt == nil || evt.Type != purchasepkg.EventTypeCompleted {
		t.Fatalf("nil agreement must still produce a typed event")
	}
	if len(evt.Attributes) != 0 {
		t.Fatalf("nil agreement must carry no attributes")
	}
}
