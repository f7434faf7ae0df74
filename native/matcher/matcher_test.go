package matcher

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smith5mc/clearing-sub001/native/orderbook"
)

type staticUsers struct{ accepted map[string]map[string]bool }

func (u staticUsers) AcceptsToken(user, token string) bool { return u.accepted[user][token] }

func TestMatchDvPIsIdempotentAndDeterministic(t *testing.T) {
	store := orderbook.NewMemStore()
	ob := orderbook.NewEngine(staticUsers{})
	ob.SetState(store)

	buy, err := ob.SubmitDvPBuy("bob", "bond7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)
	sell, err := ob.SubmitDvPSell("alice", "bond7", 1, []orderbook.PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "bob")
	require.NoError(t, err)

	m := New(store, staticUsers{})
	n := m.MatchDvP()
	require.Equal(t, 1, n)

	gotBuy, _ := store.DvPGet(buy.ID)
	gotSell, _ := store.DvPGet(sell.ID)
	require.Equal(t, sell.ID, gotBuy.MatchedWith)
	require.Equal(t, buy.ID, gotSell.MatchedWith)

	// Idempotent: a second pass with no new submissions is a no-op.
	n = m.MatchDvP()
	require.Equal(t, 0, n)
}

func TestMatchDvPRequiresMutualCounterparty(t *testing.T) {
	store := orderbook.NewMemStore()
	ob := orderbook.NewEngine(staticUsers{})
	ob.SetState(store)

	_, err := ob.SubmitDvPBuy("bob", "bond7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)
	// Sell names a different counterparty than the buyer.
	_, err = ob.SubmitDvPSell("alice", "bond7", 1, []orderbook.PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "carol")
	require.NoError(t, err)

	m := New(store, staticUsers{})
	require.Equal(t, 0, m.MatchDvP())
}

func TestMatchSwapPairsCompatibleOrders(t *testing.T) {
	store := orderbook.NewMemStore()
	users := staticUsers{accepted: map[string]map[string]bool{
		"bob":   {"T1": true},
		"carol": {"T0": true},
	}}
	ob := orderbook.NewEngine(users)
	ob.SetState(store)

	a, err := ob.SubmitSwapOrder("bob", big.NewInt(800), "T0", big.NewInt(800))
	require.NoError(t, err)
	b, err := ob.SubmitSwapOrder("carol", big.NewInt(800), "T1", big.NewInt(800))
	require.NoError(t, err)

	m := New(store, users)
	n := m.MatchSwap()
	require.Equal(t, 1, n)

	gotA, _ := store.SwapGet(a.ID)
	gotB, _ := store.SwapGet(b.ID)
	require.Equal(t, b.ID, gotA.MatchedPeerID)
	require.Equal(t, a.ID, gotB.MatchedPeerID)

	require.Equal(t, 0, m.MatchSwap())
}

func TestMatchSwapRejectsUnacceptedToken(t *testing.T) {
	store := orderbook.NewMemStore()
	users := staticUsers{accepted: map[string]map[string]bool{
		"bob":   {"T2": true},
		"carol": {"T0": true},
	}}
	ob := orderbook.NewEngine(users)
	ob.SetState(store)

	_, err := ob.SubmitSwapOrder("bob", big.NewInt(800), "T0", big.NewInt(800))
	require.NoError(t, err)
	_, err = ob.SubmitSwapOrder("carol", big.NewInt(800), "T1", big.NewInt(800))
	require.NoError(t, err)

	m := New(store, users)
	require.Equal(t, 0, m.MatchSwap())
}
