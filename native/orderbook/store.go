package orderbook

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is the in-memory order book: the concrete state backing
// Engine's narrow state interface. It maintains per-counterparty indices
// for DvP sell orders to accelerate matching (spec section 4.2).
type MemStore struct {
	mu sync.RWMutex

	nextDvPID    uint64
	nextPaymentID uint64
	nextSwapID   uint64

	dvp        map[uint64]*DvPOrder
	payments   map[uint64]*PaymentRequest
	swaps      map[uint64]*SwapOrder

	// sellsByCounterpartyAsset indexes active, unmatched sell orders by
	// (counterparty, assetID, serial) to accelerate DvP matching.
	sellsByCounterpartyAsset map[string][]uint64
}

// NewMemStore constructs an empty order book.
func NewMemStore() *MemStore {
	return &MemStore{
		dvp:                      make(map[uint64]*DvPOrder),
		payments:                 make(map[uint64]*PaymentRequest),
		swaps:                    make(map[uint64]*SwapOrder),
		sellsByCounterpartyAsset: make(map[string][]uint64),
	}
}

func sellIndexKey(counterparty, assetID string, serial uint64) string {
	return fmt.Sprintf("%s\x00%s\x00%d", counterparty, assetID, serial)
}

// NextDvPID allocates the next monotonic DvP order id.
func (s *MemStore) NextDvPID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDvPID++
	return s.nextDvPID
}

// DvPPut stores (or updates) a DvP order.
func (s *MemStore) DvPPut(o *DvPOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.dvp[o.ID]; ok {
		oldKey := sellIndexKey(existing.Counterparty, existing.AssetID, existing.TokenSerial)
		s.sellsByCounterpartyAsset[oldKey] = s.removeID(s.sellsByCounterpartyAsset[oldKey], o.ID)
	}
	s.dvp[o.ID] = o.Clone()
	if o.Side == SideSell && o.Active && !o.Matched() {
		key := sellIndexKey(o.Counterparty, o.AssetID, o.TokenSerial)
		s.sellsByCounterpartyAsset[key] = appendUniqueSorted(s.sellsByCounterpartyAsset[key], o.ID)
	}
	return nil
}

func (s *MemStore) removeID(ids []uint64, id uint64) []uint64 {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func appendUniqueSorted(ids []uint64, id uint64) []uint64 {
	out := append(ids, id)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DvPGet returns a snapshot of the order, if present.
func (s *MemStore) DvPGet(id uint64) (*DvPOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.dvp[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// DvPAll returns every DvP order, sorted ascending by id (spec section 5,
// "Determinism").
func (s *MemStore) DvPAll() []*DvPOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DvPOrder, 0, len(s.dvp))
	for _, o := range s.dvp {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DvPActiveBuys returns active, unmatched buy orders sorted ascending by id.
func (s *MemStore) DvPActiveBuys() []*DvPOrder {
	return s.filterDvP(func(o *DvPOrder) bool {
		return o.Side == SideBuy && o.Active && !o.Matched()
	})
}

// DvPActiveSellsFor returns the active, unmatched sell orders quoting the
// given counterparty/asset/serial combination, sorted ascending by id —
// the per-counterparty index the matcher scans.
func (s *MemStore) DvPActiveSellsFor(counterparty, assetID string, serial uint64) []*DvPOrder {
	s.mu.RLock()
	ids := append([]uint64(nil), s.sellsByCounterpartyAsset[sellIndexKey(counterparty, assetID, serial)]...)
	s.mu.RUnlock()
	out := make([]*DvPOrder, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.DvPGet(id); ok {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) filterDvP(pred func(*DvPOrder) bool) []*DvPOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DvPOrder, 0)
	for _, o := range s.dvp {
		if pred(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextPaymentID allocates the next monotonic payment request id.
func (s *MemStore) NextPaymentID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPaymentID++
	return s.nextPaymentID
}

// PaymentPut stores (or updates) a payment request.
func (s *MemStore) PaymentPut(p *PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p.Clone()
	return nil
}

// PaymentGet returns a snapshot of the payment request, if present.
func (s *MemStore) PaymentGet(id uint64) (*PaymentRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// PaymentAll returns every payment request, sorted ascending by id.
func (s *MemStore) PaymentAll() []*PaymentRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PaymentRequest, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextSwapID allocates the next monotonic swap order id.
func (s *MemStore) NextSwapID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSwapID++
	return s.nextSwapID
}

// SwapPut stores (or updates) a swap order.
func (s *MemStore) SwapPut(o *SwapOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps[o.ID] = o.Clone()
	return nil
}

// SwapGet returns a snapshot of the swap order, if present.
func (s *MemStore) SwapGet(id uint64) (*SwapOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.swaps[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// SwapAll returns every swap order, sorted ascending by id.
func (s *MemStore) SwapAll() []*SwapOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SwapOrder, 0, len(s.swaps))
	for _, o := range s.swaps {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SwapActiveUnmatched returns active, unmatched swap orders sorted
// ascending by id.
func (s *MemStore) SwapActiveUnmatched() []*SwapOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SwapOrder, 0)
	for _, o := range s.swaps {
		if o.Active && !o.Matched() {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
