package purchase

import (
	"encoding/hex"
	"strconv"

	"purchasechain/core/types"
)

const (
	EventTypeInitialized = "purchase.initialized"
	EventTypePayment     = "purchase.payment"
	EventTypeCompleted   = "purchase.completed"
)

// NewInitializedEvent returns the canonical event payload for a newly created
// agreement.
func NewInitializedEvent(a *Agreement) *types.Event {
	return newAgreementEvent(EventTypeInitialized, a)
}

// NewPaymentEvent returns the canonical event payload emitted when a buyer's
// payment settles.
func NewPaymentEvent(a *Agreement) *types.Event {
	return newAgreementEvent(EventTypePayment, a)
}

// NewCompletedEvent returns the canonical event payload emitted when the
// agreement reaches its terminal state.
func NewCompletedEvent(a *Agreement) *types.Event {
	return newAgreementEvent(EventTypeCompleted, a)
}

func newAgreementEvent(eventType string, a *Agreement) *types.Event {
	attrs := make(map[string]string)
	if a == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeAgreement(a)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(sanitized.ID[:])
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["assetId"] = hex.EncodeToString(sanitized.AssetID[:])
	attrs["price"] = sanitized.Price.String()
	attrs["status"] = sanitized.Status.String()
	attrs["availability"] = sanitized.Availability.String()
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	if sanitized.ItemName != "" {
		attrs["itemName"] = sanitized.ItemName
	}
	if sanitized.Buyer != nil {
		attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
