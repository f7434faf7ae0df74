package netting

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/native/obligation"
)

func TestAggregateAndConservation(t *testing.T) {
	dvp := []obligation.DvPPair{{Buyer: "bob", Seller: "alice", PaymentToken: "T0", Price: big.NewInt(1000)}}
	payments := []obligation.Payment{{Sender: "carol", Recipient: "alice", Token: "T1", Amount: big.NewInt(500)}}
	swaps := []obligation.SwapPair{{MakerA: "bob", SendTokenA: "T0", SendAmountA: big.NewInt(800), MakerB: "carol", SendTokenB: "T1", SendAmountB: big.NewInt(800)}}
	table := obligation.Compute(dvp, payments, swaps, func(string) bool { return true })

	agg := Aggregate(table)
	require.Equal(t, big.NewInt(1500), agg["alice"])
	require.Equal(t, big.NewInt(-1000), agg["bob"])
	require.Equal(t, big.NewInt(-500), agg["carol"])

	require.NoError(t, CheckConservation(agg))
	require.NoError(t, CheckPerTokenConservation(table))
}

func TestCheckConservationDetectsImbalance(t *testing.T) {
	agg := map[string]*big.Int{"alice": big.NewInt(10), "bob": big.NewInt(-5)}
	err := CheckConservation(agg)
	require.ErrorIs(t, err, clearingerrors.ErrInternalInvariantViolation)
}
