// Package errors defines the sentinel error values returned across the
// clearing engine's packages. Callers use errors.Is against these values
// rather than matching on string content.
package errors

import "errors"

var (
	// ErrInvalidConfig is returned when a user's accepted-token list is
	// empty or contains a duplicate entry.
	ErrInvalidConfig = errors.New("clearing: invalid user configuration")

	// ErrTokenNotAccepted is returned when a payment fulfillment references
	// a token outside the recipient's accepted list. The swap matcher does
	// not return it; it simply leaves such orders unpaired.
	ErrTokenNotAccepted = errors.New("clearing: token not accepted")

	// ErrUnknownID is returned when an operation references an order,
	// payment request, or swap order id that does not exist.
	ErrUnknownID = errors.New("clearing: unknown id")

	// ErrNotOwner is returned when a cancel is attempted by anyone other
	// than the item's maker (or, for payment requests, its recipient).
	ErrNotOwner = errors.New("clearing: caller is not the owner")

	// ErrAlreadyMatched is returned when an operation expects an
	// unmatched item but the item has already been paired.
	ErrAlreadyMatched = errors.New("clearing: item already matched")

	// ErrAlreadySettled is returned when an operation targets an item
	// that has already completed settlement.
	ErrAlreadySettled = errors.New("clearing: item already settled")

	// ErrInactive is returned when an operation targets an item that has
	// been cancelled or otherwise deactivated.
	ErrInactive = errors.New("clearing: item is inactive")

	// ErrTooSoon is returned by perform_settlement when the configured
	// cycle interval has not yet elapsed since the last settlement.
	ErrTooSoon = errors.New("clearing: settlement cycle interval not elapsed")

	// ErrBusy is returned by mutating submission/cancellation entry
	// points while a settlement cycle is in progress.
	ErrBusy = errors.New("clearing: engine busy processing a settlement cycle")

	// ErrInvalidAmount is returned when a submitted amount is zero,
	// negative, does not fit an unsigned 256-bit value, or exceeds the
	// configured amount scale. Each amount is checked on its own, not in
	// combination with existing obligations.
	ErrInvalidAmount = errors.New("clearing: invalid amount")

	// ErrStakeShortfall indicates a participant could not raise their
	// full stake quota. The stake manager reports a shortfall through
	// Collect's boolean result rather than this value, and the
	// orchestrator marks the participant ineligible; it does not reach a
	// caller of perform_settlement.
	ErrStakeShortfall = errors.New("clearing: stake shortfall")

	// ErrSettlementDefault indicates one or more participants failed to
	// cover their net obligation during lock-net. The orchestrator
	// restarts the cycle once before surfacing this as a failure.
	ErrSettlementDefault = errors.New("clearing: settlement default")

	// ErrInternalInvariantViolation is fatal: a post-condition the engine
	// relies on (sum-to-zero netting, per token and in aggregate) failed to
	// hold. The cycle aborts and the condition must be investigated.
	ErrInternalInvariantViolation = errors.New("clearing: internal invariant violation")
)
