package purchase

import "errors"

var (
	// ErrAgreementNotFound is returned when the referenced agreement does not
	// exist in state.
	ErrAgreementNotFound = errors.New("purchase: agreement not found")
	// ErrInsufficientFunds is returned when the buyer's available balance is
	// below the agreed price.
	ErrInsufficientFunds = errors.New("purchase: buyer balance below price")
	// ErrAlreadyPaid is returned when payment is attempted on an agreement
	// that has already left the initial state.
	ErrAlreadyPaid = errors.New("purchase: payment already received")
	// ErrPaymentNotReceived is returned when completion is attempted before
	// any payment was made.
	ErrPaymentNotReceived = errors.New("purchase: payment not received")
	// ErrPurchaseAlreadyCompleted is returned when completion is attempted on
	// a terminal agreement. Completion is deliberately not idempotent: a
	// silent second success would mask a double-release of custody.
	ErrPurchaseAlreadyCompleted = errors.New("purchase: purchase already completed")
	// ErrUnauthorized is returned when the caller lacks the signature or
	// capability the operation requires.
	ErrUnauthorized = errors.New("purchase: caller not authorized")
	// ErrAllocationFailure is returned when the record cannot be created
	// within the declared capacity.
	ErrAllocationFailure = errors.New("purchase: record capacity exceeded")
	// ErrDefinitionMismatch is returned when an agreement id already exists
	// with a different definition.
	ErrDefinitionMismatch = errors.New("purchase: agreement already exists with different definition")
	// ErrOutsideWindow is returned when window enforcement is enabled and the
	// payment arrives outside the agreement's validity window.
	ErrOutsideWindow = errors.New("purchase: agreement window not open")
)
