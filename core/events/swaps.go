package events

import (
	"math/big"

	"github.com/smith5mc/clearing-sub001/core/types"
)

// SwapOrderSubmitted is emitted when a PvP swap order is accepted.
type SwapOrderSubmitted struct {
	SwapID        uint64
	Maker         string
	SendAmount    *big.Int
	SendToken     string
	ReceiveAmount *big.Int
}

func (SwapOrderSubmitted) EventType() string { return TypeSwapOrderSubmitted }

func (e SwapOrderSubmitted) Event() *types.Event {
	return &types.Event{Type: TypeSwapOrderSubmitted, Attributes: map[string]string{
		"swapId":        uintString(e.SwapID),
		"maker":         e.Maker,
		"sendAmount":    amountString(e.SendAmount),
		"sendToken":     e.SendToken,
		"receiveAmount": amountString(e.ReceiveAmount),
	}}
}

// SwapOrderMatched is emitted once when the matcher pairs two swap orders.
type SwapOrderMatched struct {
	SwapAID uint64
	SwapBID uint64
}

func (SwapOrderMatched) EventType() string { return TypeSwapOrderMatched }

func (e SwapOrderMatched) Event() *types.Event {
	return &types.Event{Type: TypeSwapOrderMatched, Attributes: map[string]string{
		"swapAId": uintString(e.SwapAID),
		"swapBId": uintString(e.SwapBID),
	}}
}

// SwapOrderCancelled is emitted when a swap order is cancelled by its maker,
// or unmatched back to active once its failed_cycles reaches the retry cap.
type SwapOrderCancelled struct {
	SwapID uint64
	Reason string
}

func (SwapOrderCancelled) EventType() string { return TypeSwapOrderCancelled }

func (e SwapOrderCancelled) Event() *types.Event {
	return &types.Event{Type: TypeSwapOrderCancelled, Attributes: map[string]string{
		"swapId": uintString(e.SwapID),
		"reason": e.Reason,
	}}
}
