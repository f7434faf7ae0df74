package events

import (
	"math/big"

	"github.com/smith5mc/clearing-sub001/core/types"
)

// OrderKind distinguishes the family of order an OrderPlaced/OrderMatched
// event describes, since DvP buy/sell and PvP swap orders share the same
// lifecycle events but carry different attributes.
type OrderKind string

const (
	OrderKindDvPBuy  OrderKind = "dvp_buy"
	OrderKindDvPSell OrderKind = "dvp_sell"
)

// OrderPlaced is emitted when a DvP buy or sell half is accepted into the
// order book.
type OrderPlaced struct {
	OrderID      uint64
	Kind         OrderKind
	Maker        string
	AssetID      string
	TokenSerial  uint64
	PaymentToken string
	Price        *big.Int
	Counterparty string
}

func (OrderPlaced) EventType() string { return TypeOrderPlaced }

func (e OrderPlaced) Event() *types.Event {
	return &types.Event{Type: TypeOrderPlaced, Attributes: map[string]string{
		"orderId":      uintString(e.OrderID),
		"kind":         string(e.Kind),
		"maker":        e.Maker,
		"assetId":      e.AssetID,
		"tokenSerial":  uintString(e.TokenSerial),
		"paymentToken": e.PaymentToken,
		"price":        amountString(e.Price),
		"counterparty": e.Counterparty,
	}}
}

// OrderMatched is emitted once when a DvP buy/sell pair is paired by the
// matcher. Swap pairings emit the dedicated SwapOrderMatched event instead.
type OrderMatched struct {
	BuyOrderID  uint64
	SellOrderID uint64
}

func (OrderMatched) EventType() string { return TypeOrderMatched }

func (e OrderMatched) Event() *types.Event {
	return &types.Event{Type: TypeOrderMatched, Attributes: map[string]string{
		"buyOrderId":  uintString(e.BuyOrderID),
		"sellOrderId": uintString(e.SellOrderID),
	}}
}
