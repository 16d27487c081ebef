package referral

import "errors"

// Referral service errors.
var (
	// ErrNotFound indicates the referral entry does not exist.
	ErrNotFound = errors.New("referral entry not found")
	// ErrLimitReached indicates the referrer hit the program's referral cap.
	ErrLimitReached = errors.New("referral limit reached")
	// ErrAlreadyReferred indicates the referee already has a referral entry.
	ErrAlreadyReferred = errors.New("referee already referred")
	// ErrSelfReferral indicates a customer tried to refer themselves.
	ErrSelfReferral = errors.New("cannot refer yourself")
	// ErrUnknownCustomer indicates the referrer or referee does not exist.
	ErrUnknownCustomer = errors.New("referral customer not found")
	// ErrAlreadyFinal indicates the entry is completed or expired and cannot change.
	ErrAlreadyFinal = errors.New("referral entry already finalized")
	// ErrPurchaseTooSmall indicates the purchase is under the program minimum.
	ErrPurchaseTooSmall = errors.New("purchase amount below program minimum")
)
