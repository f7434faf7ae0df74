package events

import (
	"math/big"

	"github.com/smith5mc/clearing-sub001/core/types"
)

// PaymentRequestCreated is emitted on create_payment_request.
type PaymentRequestCreated struct {
	PaymentID uint64
	Recipient string
	Sender    string
	Amount    *big.Int
}

func (PaymentRequestCreated) EventType() string { return TypePaymentRequestCreated }

func (e PaymentRequestCreated) Event() *types.Event {
	return &types.Event{Type: TypePaymentRequestCreated, Attributes: map[string]string{
		"paymentId": uintString(e.PaymentID),
		"recipient": e.Recipient,
		"sender":    e.Sender,
		"amount":    amountString(e.Amount),
	}}
}

// PaymentRequestFulfilled is emitted when a sender commits a token from the
// recipient's accepted list.
type PaymentRequestFulfilled struct {
	PaymentID      uint64
	Sender         string
	FulfilledToken string
}

func (PaymentRequestFulfilled) EventType() string { return TypePaymentRequestFulfilled }

func (e PaymentRequestFulfilled) Event() *types.Event {
	return &types.Event{Type: TypePaymentRequestFulfilled, Attributes: map[string]string{
		"paymentId":      uintString(e.PaymentID),
		"sender":         e.Sender,
		"fulfilledToken": e.FulfilledToken,
	}}
}

// PaymentRequestCancelled is emitted when a request is cancelled by its
// maker/recipient, or forcibly cancelled after MAX_FAILED_CYCLES rollbacks.
type PaymentRequestCancelled struct {
	PaymentID uint64
	Reason    string
}

func (PaymentRequestCancelled) EventType() string { return TypePaymentRequestCancelled }

func (e PaymentRequestCancelled) Event() *types.Event {
	return &types.Event{Type: TypePaymentRequestCancelled, Attributes: map[string]string{
		"paymentId": uintString(e.PaymentID),
		"reason":    e.Reason,
	}}
}
