package purchase

import (
	"fmt"
	"strings"
)

// SettlementMode selects how the buyer's payment reaches the seller.
type SettlementMode uint8

const (
	// SettlementDirect moves funds straight from buyer to seller at payment
	// time.
	SettlementDirect SettlementMode = iota
	// SettlementEscrow parks funds with the agreement authority at payment
	// time and releases them to the seller at completion.
	SettlementEscrow
)

// CustodyMode selects how control of the asset moves to the buyer.
type CustodyMode uint8

const (
	// CustodyDelegated has the seller approve the agreement authority as a
	// one-shot delegate at initialization; the delegate pulls the asset to
	// the buyer at payment time.
	CustodyDelegated CustodyMode = iota
	// CustodyHolding moves the asset into the agreement authority's custody
	// at initialization and releases it to the buyer at completion.
	CustodyHolding
)

// Strategy is the deployment-time pairing of settlement and custody modes.
// It is fixed when the engine is constructed and never mixed at runtime.
type Strategy struct {
	Settlement SettlementMode
	Custody    CustodyMode
}

// DefaultStrategy matches the strongest pairing: funds held by the agreement
// until completion, asset parked with the agreement from the start.
func DefaultStrategy() Strategy {
	return Strategy{Settlement: SettlementEscrow, Custody: CustodyHolding}
}

// Validate reports whether both modes carry supported values.
func (s Strategy) Validate() error {
	switch s.Settlement {
	case SettlementDirect, SettlementEscrow:
	default:
		return fmt.Errorf("purchase: unsupported settlement mode: %d", s.Settlement)
	}
	switch s.Custody {
	case CustodyDelegated, CustodyHolding:
	default:
		return fmt.Errorf("purchase: unsupported custody mode: %d", s.Custody)
	}
	return nil
}

// ParseSettlementMode maps a configuration string to a settlement mode.
func ParseSettlementMode(value string) (SettlementMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "direct":
		return SettlementDirect, nil
	case "escrow":
		return SettlementEscrow, nil
	default:
		return 0, fmt.Errorf("purchase: unknown settlement mode %q", value)
	}
}

// ParseCustodyMode maps a configuration string to a custody mode.
func ParseCustodyMode(value string) (CustodyMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "delegated":
		return CustodyDelegated, nil
	case "holding":
		return CustodyHolding, nil
	default:
		return 0, fmt.Errorf("purchase: unknown custody mode %q", value)
	}
}

func (s SettlementMode) String() string {
	switch s {
	case SettlementDirect:
		return "direct"
	case SettlementEscrow:
		return "escrow"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (c CustodyMode) String() string {
	switch c {
	case CustodyDelegated:
		return "delegated"
	case CustodyHolding:
		return "holding"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}
