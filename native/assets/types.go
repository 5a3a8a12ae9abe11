package assets

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOwner is returned when a transfer or approval is attempted by an
	// address that does not own the asset.
	ErrNotOwner = errors.New("assets: caller does not own asset")
	// ErrNotDelegate is returned when a delegated transfer is attempted by an
	// address that holds no approval for the asset.
	ErrNotDelegate = errors.New("assets: caller is not the approved delegate")
	// ErrNotFound is returned when the referenced asset does not exist.
	ErrNotFound = errors.New("assets: asset not found")
)

// Asset is a unique, indivisible unit of ownership tracked by the ledger. The
// delegate, when set, is a one-shot capability: it is cleared the moment it is
// exercised or the asset changes hands, so a stale approval can never move the
// asset a second time.
type Asset struct {
	ID       [32]byte
	Owner    [20]byte
	Delegate *[20]byte
}

// Clone returns a deep copy of the asset so callers can safely mutate the copy
// without affecting the stored instance.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Delegate != nil {
		delegate := *a.Delegate
		clone.Delegate = &delegate
	}
	return &clone
}

// Sanitize validates the asset definition and returns a cloned instance.
func Sanitize(a *Asset) (*Asset, error) {
	if a == nil {
		return nil, fmt.Errorf("assets: nil asset")
	}
	if a.ID == ([32]byte{}) {
		return nil, fmt.Errorf("assets: asset id must not be zero")
	}
	if a.Owner == ([20]byte{}) {
		return nil, fmt.Errorf("assets: owner must not be zero")
	}
	return a.Clone(), nil
}

// Approve grants the delegate a one-shot capability to move the asset. Only
// the current owner may approve, and approving replaces any prior delegate.
func (a *Asset) Approve(owner, delegate [20]byte) error {
	if a.Owner != owner {
		return ErrNotOwner
	}
	d := delegate
	a.Delegate = &d
	return nil
}

// Revoke clears any outstanding delegate approval. Only the owner may revoke.
func (a *Asset) Revoke(owner [20]byte) error {
	if a.Owner != owner {
		return ErrNotOwner
	}
	a.Delegate = nil
	return nil
}

// Transfer moves ownership from the current owner to the recipient. Any
// outstanding approval dies with the transfer.
func (a *Asset) Transfer(from, to [20]byte) error {
	if a.Owner != from {
		return ErrNotOwner
	}
	a.Owner = to
	a.Delegate = nil
	return nil
}

// TransferByDelegate moves ownership under a previously granted approval. The
// approval is consumed whether or not it is ever granted again.
func (a *Asset) TransferByDelegate(delegate, to [20]byte) error {
	if a.Delegate == nil || *a.Delegate != delegate {
		return ErrNotDelegate
	}
	a.Owner = to
	a.Delegate = nil
	return nil
}
