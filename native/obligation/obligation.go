// Package obligation converts matched settlement items into per-(user,
// token) signed deltas (spec section 4.5 / 4.4 Phase 3). It knows nothing
// about order books or registries directly: the orchestrator translates
// matched DvP pairs, fulfilled payments, and matched swaps into the plain
// structs below, which keeps this calculator trivially unit-testable.
package obligation

import (
	"math/big"
	"sort"
)

// NetTable is the per-user, per-token signed obligation ledger produced by
// Compute: net_per_token[user][token] in the specification's terms.
type NetTable map[string]map[string]*big.Int

// newNetTable constructs an empty table.
func newNetTable() NetTable { return make(NetTable) }

func (t NetTable) add(user, token string, delta *big.Int) {
	if delta == nil || delta.Sign() == 0 {
		return
	}
	byToken, ok := t[user]
	if !ok {
		byToken = make(map[string]*big.Int)
		t[user] = byToken
	}
	current, ok := byToken[token]
	if !ok {
		current = big.NewInt(0)
	}
	byToken[token] = new(big.Int).Add(current, delta)
}

// Users returns the table's user keys, sorted ascending for deterministic
// iteration (spec section 5, "Determinism").
func (t NetTable) Users() []string {
	out := make([]string, 0, len(t))
	for u := range t {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Tokens returns the sorted token keys held for user.
func (t NetTable) Tokens(user string) []string {
	byToken := t[user]
	out := make([]string, 0, len(byToken))
	for tok := range byToken {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Get returns the signed delta for (user, token), or zero if absent.
func (t NetTable) Get(user, token string) *big.Int {
	byToken, ok := t[user]
	if !ok {
		return big.NewInt(0)
	}
	v, ok := byToken[token]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// DvPPair is a matched DvP buy/sell pair: the buyer owes price in
// payment_token, the seller is owed it.
type DvPPair struct {
	Buyer        string
	Seller       string
	PaymentToken string
	Price        *big.Int
}

// Payment is a fulfilled payment request: sender owes amount in token to
// recipient.
type Payment struct {
	Sender    string
	Recipient string
	Token     string
	Amount    *big.Int
}

// SwapPair is a matched swap order pair. A sends SendAmountA of SendTokenA
// and receives B's leg in return; B sends SendAmountB of SendTokenB.
type SwapPair struct {
	MakerA      string
	SendTokenA  string
	SendAmountA *big.Int
	MakerB      string
	SendTokenB  string
	SendAmountB *big.Int
}

func allEligible(eligible func(string) bool, users ...string) bool {
	if eligible == nil {
		return true
	}
	for _, u := range users {
		if !eligible(u) {
			return false
		}
	}
	return true
}

// Compute builds the net obligation table from matched items, excluding
// any item where at least one involved party is ineligible (spec section
// 4.4, Phase 3: "Items touching any ineligible party are excluded this
// cycle (still matched)").
func Compute(dvp []DvPPair, payments []Payment, swaps []SwapPair, eligible func(user string) bool) NetTable {
	table := newNetTable()
	for _, p := range dvp {
		if !allEligible(eligible, p.Buyer, p.Seller) {
			continue
		}
		table.add(p.Buyer, p.PaymentToken, new(big.Int).Neg(p.Price))
		table.add(p.Seller, p.PaymentToken, new(big.Int).Set(p.Price))
	}
	for _, pay := range payments {
		if !allEligible(eligible, pay.Sender, pay.Recipient) {
			continue
		}
		table.add(pay.Sender, pay.Token, new(big.Int).Neg(pay.Amount))
		table.add(pay.Recipient, pay.Token, new(big.Int).Set(pay.Amount))
	}
	for _, s := range swaps {
		if !allEligible(eligible, s.MakerA, s.MakerB) {
			continue
		}
		table.add(s.MakerA, s.SendTokenA, new(big.Int).Neg(s.SendAmountA))
		table.add(s.MakerA, s.SendTokenB, new(big.Int).Set(s.SendAmountB))
		table.add(s.MakerB, s.SendTokenB, new(big.Int).Neg(s.SendAmountB))
		table.add(s.MakerB, s.SendTokenA, new(big.Int).Set(s.SendAmountA))
	}
	return table
}
