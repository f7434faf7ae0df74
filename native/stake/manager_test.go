package stake

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smith5mc/clearing-sub001/token"
	tokenmemory "github.com/smith5mc/clearing-sub001/token/memory"
)

type staticUsers struct{ accepted map[string][]string }

func (u staticUsers) AcceptedTokensOf(user string) ([]string, error) { return u.accepted[user], nil }

func newTestRegistry(t *testing.T) (*token.Registry, *tokenmemory.Ledger, *tokenmemory.Ledger) {
	t.Helper()
	t0 := tokenmemory.NewLedger()
	t1 := tokenmemory.NewLedger()
	reg := token.NewRegistry()
	require.NoError(t, reg.Register("T0", token.NewFungible(t0)))
	require.NoError(t, reg.Register("T1", token.NewFungible(t1)))
	return reg, t0, t1
}

func TestQuota(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	m := NewManager(reg, staticUsers{}, 2000)
	require.Equal(t, big.NewInt(200), m.Quota(big.NewInt(1000)))
}

func TestCollectFullQuota(t *testing.T) {
	reg, t0, _ := newTestRegistry(t)
	t0.Fund("alice", big.NewInt(500))
	t0.Approve("alice", big.NewInt(500))
	users := staticUsers{accepted: map[string][]string{"alice": {"T0"}}}
	m := NewManager(reg, users, 2000)

	collected, ok, err := m.Collect(context.Background(), "alice", big.NewInt(200))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big.NewInt(200), collected["T0"])

	bal, _ := t0.BalanceOf(context.Background(), "alice")
	require.Equal(t, big.NewInt(300), bal)
}

func TestCollectFallsThroughRankedTokensWhenFirstInsufficient(t *testing.T) {
	reg, t0, t1 := newTestRegistry(t)
	t0.Fund("alice", big.NewInt(50))
	t0.Approve("alice", big.NewInt(50))
	t1.Fund("alice", big.NewInt(1000))
	t1.Approve("alice", big.NewInt(1000))
	users := staticUsers{accepted: map[string][]string{"alice": {"T0", "T1"}}}
	m := NewManager(reg, users, 2000)

	collected, ok, err := m.Collect(context.Background(), "alice", big.NewInt(200))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big.NewInt(50), collected["T0"])
	require.Equal(t, big.NewInt(150), collected["T1"])
}

func TestCollectMarksIneligibleOnShortfall(t *testing.T) {
	reg, t0, _ := newTestRegistry(t)
	t0.Fund("alice", big.NewInt(50))
	t0.Approve("alice", big.NewInt(50))
	users := staticUsers{accepted: map[string][]string{"alice": {"T0"}}}
	m := NewManager(reg, users, 2000)

	collected, ok, err := m.Collect(context.Background(), "alice", big.NewInt(200))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, big.NewInt(50), collected["T0"])
}

func TestApplyToObligationAndRefund(t *testing.T) {
	users := staticUsers{accepted: map[string][]string{"alice": {"T0", "T1"}}}
	reg, _, _ := newTestRegistry(t)
	m := NewManager(reg, users, 2000)

	stake := Collected{"T0": big.NewInt(100), "T1": big.NewInt(50)}
	applied, remaining := m.ApplyToObligation("alice", stake, big.NewInt(120))
	require.Equal(t, big.NewInt(0), remaining)
	require.Equal(t, big.NewInt(100), applied["T0"])
	require.Equal(t, big.NewInt(20), applied["T1"])
	require.Equal(t, big.NewInt(30), stake["T1"])
}

func TestRedistributePoolProRataByGrossOut(t *testing.T) {
	reg, t0, _ := newTestRegistry(t)
	pool := map[string]*big.Int{"T0": big.NewInt(100)}

	grossOut := map[string]*big.Int{"alice": big.NewInt(300), "carol": big.NewInt(700)}
	result, err := Redistribute(context.Background(), reg, pool, []string{"alice", "carol"}, grossOut)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(30), result["alice"]["T0"])
	require.Equal(t, big.NewInt(70), result["carol"]["T0"])

	aliceBal, _ := t0.BalanceOf(context.Background(), "alice")
	require.Equal(t, big.NewInt(30), aliceBal)
	carolBal, _ := t0.BalanceOf(context.Background(), "carol")
	require.Equal(t, big.NewInt(70), carolBal)
}

func TestRefundCreditsBackToUser(t *testing.T) {
	reg, t0, _ := newTestRegistry(t)
	t0.Fund("alice", big.NewInt(100))
	t0.Approve("alice", big.NewInt(100))

	users := staticUsers{}
	m := NewManager(reg, users, 2000)

	require.NoError(t, t0.TransferFrom(context.Background(), "alice", big.NewInt(100)))
	require.NoError(t, m.Refund(context.Background(), "alice", Collected{"T0": big.NewInt(100)}))

	bal, _ := t0.BalanceOf(context.Background(), "alice")
	require.Equal(t, big.NewInt(100), bal)
}
