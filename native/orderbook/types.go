// Package orderbook holds DvP orders, payment requests, and swap orders
// together with their lifecycle flags (spec section 4.2). It owns these
// items; matched counterparts reference each other by id only (spec
// section 9, "Cyclic cross-references").
package orderbook

import (
	"fmt"
	"math/big"
	"strings"
)

// AnySender is the sentinel recipient-chosen value meaning a payment
// request may be fulfilled by any sender.
const AnySender = "any"

// Side distinguishes the two halves of a DvP order.
type Side uint8

const (
	SideUnspecified Side = iota
	SideBuy
	SideSell
)

// Valid reports whether the side is one of the two supported values.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell:
		return true
	default:
		return false
	}
}

// PriceQuote is one (token, price) combination a sell order will accept.
// Sell orders may quote several stablecoins simultaneously; buy orders
// commit to a single payment_token/price pair (spec section 9, open
// question on the sell-order schema — resolved here in favor of a quote
// list so a seller can list in more than one stablecoin at once).
type PriceQuote struct {
	Token string
	Price *big.Int
}

// Clone returns a deep copy of the quote.
func (q PriceQuote) Clone() PriceQuote {
	clone := q
	if q.Price != nil {
		clone.Price = new(big.Int).Set(q.Price)
	}
	return clone
}

// DvPOrder is one half (buy or sell) of a delivery-versus-payment trade
// (spec section 3, "DvP Order").
type DvPOrder struct {
	ID           uint64
	Maker        string
	Side         Side
	AssetID      string
	TokenSerial  uint64
	PaymentToken string // Buy only: the token offered.
	Price        *big.Int // Buy only: the price offered.
	Quotes       []PriceQuote // Sell only: acceptable (token, price) combinations.
	Counterparty string
	Active       bool
	Locked       bool
	MatchedWith  uint64 // 0 = unmatched; otherwise the peer order's id.
	FailedCycles uint32
}

// Clone returns a deep copy safe for callers to mutate.
func (o *DvPOrder) Clone() *DvPOrder {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Price != nil {
		clone.Price = new(big.Int).Set(o.Price)
	}
	if len(o.Quotes) > 0 {
		clone.Quotes = make([]PriceQuote, len(o.Quotes))
		for i, q := range o.Quotes {
			clone.Quotes[i] = q.Clone()
		}
	}
	return &clone
}

// Matched reports whether the order has been paired with a counter-order.
func (o *DvPOrder) Matched() bool { return o != nil && o.MatchedWith != 0 }

// QuoteFor returns the sell order's quote for token, if any.
func (o *DvPOrder) QuoteFor(token string) (*big.Int, bool) {
	if o == nil {
		return nil, false
	}
	token = normalizeToken(token)
	for _, q := range o.Quotes {
		if q.Token == token {
			return q.Price, true
		}
	}
	return nil, false
}

// SanitizeDvPOrder validates and normalizes a DvP order, returning a clone.
func SanitizeDvPOrder(o *DvPOrder) (*DvPOrder, error) {
	if o == nil {
		return nil, fmt.Errorf("orderbook: nil dvp order")
	}
	clone := o.Clone()
	clone.Maker = strings.TrimSpace(clone.Maker)
	if clone.Maker == "" {
		return nil, fmt.Errorf("orderbook: dvp order requires a maker")
	}
	if !clone.Side.Valid() {
		return nil, fmt.Errorf("orderbook: invalid dvp order side")
	}
	clone.AssetID = strings.TrimSpace(clone.AssetID)
	if clone.AssetID == "" {
		return nil, fmt.Errorf("orderbook: dvp order requires an asset id")
	}
	clone.Counterparty = strings.TrimSpace(clone.Counterparty)
	if clone.Counterparty == "" {
		return nil, fmt.Errorf("orderbook: dvp order requires a counterparty")
	}
	switch clone.Side {
	case SideBuy:
		clone.PaymentToken = normalizeToken(clone.PaymentToken)
		if clone.PaymentToken == "" {
			return nil, fmt.Errorf("orderbook: dvp buy order requires a payment token")
		}
		if clone.Price == nil || clone.Price.Sign() <= 0 {
			return nil, fmt.Errorf("orderbook: dvp buy order price must be positive")
		}
		clone.Quotes = nil
	case SideSell:
		if len(clone.Quotes) == 0 {
			return nil, fmt.Errorf("orderbook: dvp sell order requires at least one quote")
		}
		seen := make(map[string]struct{}, len(clone.Quotes))
		for i, q := range clone.Quotes {
			token := normalizeToken(q.Token)
			if token == "" {
				return nil, fmt.Errorf("orderbook: dvp sell order quote %d missing token", i)
			}
			if q.Price == nil || q.Price.Sign() <= 0 {
				return nil, fmt.Errorf("orderbook: dvp sell order quote for %s must be positive", token)
			}
			if _, dup := seen[token]; dup {
				return nil, fmt.Errorf("orderbook: dvp sell order duplicate quote for %s", token)
			}
			seen[token] = struct{}{}
			clone.Quotes[i] = PriceQuote{Token: token, Price: new(big.Int).Set(q.Price)}
		}
		clone.PaymentToken = ""
		clone.Price = nil
	}
	return clone, nil
}

// PaymentRequest is a directed fungible transfer request from a sender (or
// any sender) to a recipient (spec section 3, "Payment Request").
type PaymentRequest struct {
	ID             uint64
	Recipient      string
	Sender         string // AnySender, or a specific user id.
	Amount         *big.Int
	FulfilledToken string
	Active         bool
	Fulfilled      bool
	FailedCycles   uint32
}

// Clone returns a deep copy safe for callers to mutate.
func (p *PaymentRequest) Clone() *PaymentRequest {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	return &clone
}

// SanitizePaymentRequest validates and normalizes a payment request.
func SanitizePaymentRequest(p *PaymentRequest) (*PaymentRequest, error) {
	if p == nil {
		return nil, fmt.Errorf("orderbook: nil payment request")
	}
	clone := p.Clone()
	clone.Recipient = strings.TrimSpace(clone.Recipient)
	if clone.Recipient == "" {
		return nil, fmt.Errorf("orderbook: payment request requires a recipient")
	}
	clone.Sender = strings.TrimSpace(clone.Sender)
	if clone.Sender == "" {
		clone.Sender = AnySender
	}
	if clone.Amount == nil || clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("orderbook: payment request amount must be positive")
	}
	if clone.Fulfilled && clone.FulfilledToken == "" {
		return nil, fmt.Errorf("orderbook: fulfilled payment request missing token")
	}
	if clone.FulfilledToken != "" {
		clone.FulfilledToken = normalizeToken(clone.FulfilledToken)
	}
	return clone, nil
}

// IsOpenTo reports whether sender may fulfil this request.
func (p *PaymentRequest) IsOpenTo(sender string) bool {
	if p == nil {
		return false
	}
	if p.Sender == AnySender {
		return true
	}
	return p.Sender == sender
}

// SwapOrder is one side of a fungible-for-fungible exchange (spec section 3,
// "Swap Order").
type SwapOrder struct {
	ID            uint64
	Maker         string
	SendAmount    *big.Int
	SendToken     string
	ReceiveAmount *big.Int
	Active        bool
	MatchedPeerID uint64 // 0 = unmatched.
	FailedCycles  uint32
}

// Clone returns a deep copy safe for callers to mutate.
func (s *SwapOrder) Clone() *SwapOrder {
	if s == nil {
		return nil
	}
	clone := *s
	if s.SendAmount != nil {
		clone.SendAmount = new(big.Int).Set(s.SendAmount)
	}
	if s.ReceiveAmount != nil {
		clone.ReceiveAmount = new(big.Int).Set(s.ReceiveAmount)
	}
	return &clone
}

// Matched reports whether the swap order has a paired peer.
func (s *SwapOrder) Matched() bool { return s != nil && s.MatchedPeerID != 0 }

// SanitizeSwapOrder validates and normalizes a swap order.
func SanitizeSwapOrder(s *SwapOrder) (*SwapOrder, error) {
	if s == nil {
		return nil, fmt.Errorf("orderbook: nil swap order")
	}
	clone := s.Clone()
	clone.Maker = strings.TrimSpace(clone.Maker)
	if clone.Maker == "" {
		return nil, fmt.Errorf("orderbook: swap order requires a maker")
	}
	clone.SendToken = normalizeToken(clone.SendToken)
	if clone.SendToken == "" {
		return nil, fmt.Errorf("orderbook: swap order requires a send token")
	}
	if clone.SendAmount == nil || clone.SendAmount.Sign() <= 0 {
		return nil, fmt.Errorf("orderbook: swap order send amount must be positive")
	}
	if clone.ReceiveAmount == nil || clone.ReceiveAmount.Sign() <= 0 {
		return nil, fmt.Errorf("orderbook: swap order receive amount must be positive")
	}
	return clone, nil
}

func normalizeToken(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
