package auctionerrors

import "errors"

// Validation errors: surfaced to the caller synchronously, never retried.
var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrAuctionNotActive    = errors.New("auction is not active")
	ErrBidTooLow           = errors.New("bid amount too low")
	ErrSelfBid             = errors.New("cannot bid on own auction")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBidderNotFound      = errors.New("bidder not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNoBids              = errors.New("no bids found for auction")
)

// Input errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAuction = errors.New("invalid auction")
	ErrAccountExists  = errors.New("account already exists")
)

// Transient infrastructure errors: safe to resubmit; bid placement is never
// retried internally, settlement retries come from the scheduler.
var (
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

// IsTransient reports whether err is a retryable infrastructure failure
// rather than a validation rejection.
func IsTransient(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
