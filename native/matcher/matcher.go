// Package matcher pairs DvP buy/sell halves and symmetric swap orders. Both
// entry points are idempotent and callable independently of settlement
// (spec section 4.3); matching never touches balances, only bookkeeping.
package matcher

import (
	"github.com/smith5mc/clearing-sub001/core/events"
	"github.com/smith5mc/clearing-sub001/native/orderbook"
)

// book is the narrow slice of orderbook.MemStore the matcher needs.
type book interface {
	DvPGet(id uint64) (*orderbook.DvPOrder, bool)
	DvPPut(*orderbook.DvPOrder) error
	DvPActiveBuys() []*orderbook.DvPOrder
	DvPActiveSellsFor(counterparty, assetID string, serial uint64) []*orderbook.DvPOrder

	SwapGet(id uint64) (*orderbook.SwapOrder, bool)
	SwapPut(*orderbook.SwapOrder) error
	SwapActiveUnmatched() []*orderbook.SwapOrder
}

// userView reports a user's accepted-token membership, used to check the
// "each side's send_token is in the other's accepted_tokens" swap
// constraint.
type userView interface {
	AcceptsToken(user, token string) bool
}

// Matcher pairs order book entries. It holds no state of its own beyond the
// book and emitter references.
type Matcher struct {
	book    book
	users   userView
	emitter events.Emitter
}

// New constructs a matcher bound to book and users.
func New(book book, users userView) *Matcher {
	return &Matcher{book: book, users: users, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter.
func (m *Matcher) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

func (m *Matcher) emit(evt events.Event) {
	if m == nil || m.emitter == nil {
		return
	}
	m.emitter.Emit(evt)
}

// MatchDvP scans active buy orders ascending by id; for each it searches
// the seller's per-counterparty index for a compatible sell quote. Ties
// (multiple eligible sells) are broken by lowest buy id, then lowest sell
// id, matching the order the index returns candidates in.
func (m *Matcher) MatchDvP() int {
	matched := 0
	for _, buy := range m.book.DvPActiveBuys() {
		if buy.Matched() || !buy.Active {
			continue
		}
		candidates := m.book.DvPActiveSellsFor(buy.Maker, buy.AssetID, buy.TokenSerial)
		for _, sell := range candidates {
			if sell.Matched() || !sell.Active {
				continue
			}
			if sell.Maker != buy.Counterparty {
				continue
			}
			price, ok := sell.QuoteFor(buy.PaymentToken)
			if !ok || price.Cmp(buy.Price) != 0 {
				continue
			}
			buy.MatchedWith = sell.ID
			sell.MatchedWith = buy.ID
			if err := m.book.DvPPut(buy); err != nil {
				break
			}
			if err := m.book.DvPPut(sell); err != nil {
				break
			}
			m.emit(events.OrderMatched{BuyOrderID: buy.ID, SellOrderID: sell.ID})
			matched++
			break
		}
	}
	return matched
}

// MatchSwap scans active unmatched swap orders ascending by id; for each it
// scans the remaining unmatched orders ascending by id for a mutually
// compatible peer (spec section 4.3).
func (m *Matcher) MatchSwap() int {
	candidates := m.book.SwapActiveUnmatched()
	matchedIDs := make(map[uint64]bool, len(candidates))
	matched := 0
	for _, a := range candidates {
		if matchedIDs[a.ID] {
			continue
		}
		for _, b := range candidates {
			if b.ID == a.ID || matchedIDs[b.ID] {
				continue
			}
			if !swapCompatible(m.users, a, b) {
				continue
			}
			a.MatchedPeerID = b.ID
			b.MatchedPeerID = a.ID
			if err := m.book.SwapPut(a); err != nil {
				break
			}
			if err := m.book.SwapPut(b); err != nil {
				break
			}
			matchedIDs[a.ID] = true
			matchedIDs[b.ID] = true
			m.emit(events.SwapOrderMatched{SwapAID: a.ID, SwapBID: b.ID})
			matched++
			break
		}
	}
	return matched
}

func swapCompatible(users userView, a, b *orderbook.SwapOrder) bool {
	if a.SendAmount.Cmp(b.ReceiveAmount) != 0 || b.SendAmount.Cmp(a.ReceiveAmount) != 0 {
		return false
	}
	if users == nil {
		return true
	}
	return users.AcceptsToken(b.Maker, a.SendToken) && users.AcceptsToken(a.Maker, b.SendToken)
}
