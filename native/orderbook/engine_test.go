package orderbook

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
)

type staticUsers struct{ accepted map[string]map[string]bool }

func (u staticUsers) AcceptsToken(user, token string) bool { return u.accepted[user][token] }

func newTestEngine(users staticUsers) *Engine {
	e := NewEngine(users)
	e.SetState(NewMemStore())
	return e
}

func TestSubmitDvPBuyAndSell(t *testing.T) {
	e := newTestEngine(staticUsers{})

	buy, err := e.SubmitDvPBuy("bob", "bond7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(1), buy.ID)
	require.False(t, buy.Matched())

	sell, err := e.SubmitDvPSell("alice", "bond7", 1, []PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(2), sell.ID)
}

func TestSubmitDvPBuyRejectsZeroPrice(t *testing.T) {
	e := newTestEngine(staticUsers{})
	_, err := e.SubmitDvPBuy("bob", "bond7", 1, "T0", big.NewInt(0), "alice")
	require.ErrorIs(t, err, clearingerrors.ErrInvalidAmount)
}

func TestCancelDvPOrderOwnership(t *testing.T) {
	e := newTestEngine(staticUsers{})
	buy, err := e.SubmitDvPBuy("bob", "bond7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)

	err = e.CancelDvPOrder(buy.ID, "alice")
	require.ErrorIs(t, err, clearingerrors.ErrNotOwner)

	err = e.CancelDvPOrder(buy.ID, "bob")
	require.NoError(t, err)

	got, ok := e.state.DvPGet(buy.ID)
	require.True(t, ok)
	require.False(t, got.Active)
}

func TestPaymentRequestLifecycle(t *testing.T) {
	users := staticUsers{accepted: map[string]map[string]bool{"alice": {"T0": true}}}
	e := newTestEngine(users)

	req, err := e.CreatePaymentRequest("alice", AnySender, big.NewInt(500))
	require.NoError(t, err)

	_, err = e.FulfillPaymentRequest(req.ID, "carol", "T1")
	require.ErrorIs(t, err, clearingerrors.ErrTokenNotAccepted)

	fulfilled, err := e.FulfillPaymentRequest(req.ID, "carol", "T0")
	require.NoError(t, err)
	require.True(t, fulfilled.Fulfilled)
	require.Equal(t, "T0", fulfilled.FulfilledToken)

	_, err = e.FulfillPaymentRequest(req.ID, "carol", "T0")
	require.ErrorIs(t, err, clearingerrors.ErrAlreadySettled)
}

func TestPaymentRequestSenderRestriction(t *testing.T) {
	users := staticUsers{accepted: map[string]map[string]bool{"alice": {"T0": true}}}
	e := newTestEngine(users)

	req, err := e.CreatePaymentRequest("alice", "bob", big.NewInt(500))
	require.NoError(t, err)

	_, err = e.FulfillPaymentRequest(req.ID, "carol", "T0")
	require.ErrorIs(t, err, clearingerrors.ErrNotOwner)

	_, err = e.FulfillPaymentRequest(req.ID, "bob", "T0")
	require.NoError(t, err)
}

func TestCancelPaymentRequest(t *testing.T) {
	e := newTestEngine(staticUsers{})
	req, err := e.CreatePaymentRequest("alice", AnySender, big.NewInt(500))
	require.NoError(t, err)

	err = e.CancelPaymentRequest(req.ID, "bob")
	require.ErrorIs(t, err, clearingerrors.ErrNotOwner)

	err = e.CancelPaymentRequest(req.ID, "alice")
	require.NoError(t, err)

	got, ok := e.state.PaymentGet(req.ID)
	require.True(t, ok)
	require.False(t, got.Active)
}

func TestSubmitAndCancelSwapOrder(t *testing.T) {
	e := newTestEngine(staticUsers{})
	order, err := e.SubmitSwapOrder("bob", big.NewInt(800), "T0", big.NewInt(800))
	require.NoError(t, err)

	err = e.CancelSwapOrder(order.ID, "carol")
	require.ErrorIs(t, err, clearingerrors.ErrNotOwner)

	err = e.CancelSwapOrder(order.ID, "bob")
	require.NoError(t, err)
}

func TestDvPActiveSellsForIndex(t *testing.T) {
	e := newTestEngine(staticUsers{})
	_, err := e.SubmitDvPSell("alice", "bond7", 1, []PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "bob")
	require.NoError(t, err)

	sells := e.state.DvPActiveSellsFor("bob", "bond7", 1)
	require.Len(t, sells, 1)

	require.NoError(t, e.CancelDvPOrder(sells[0].ID, "alice"))
	require.Empty(t, e.state.DvPActiveSellsFor("bob", "bond7", 1))
}
