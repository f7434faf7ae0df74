package obligation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func alwaysEligible(string) bool { return true }

func TestComputeDvPPair(t *testing.T) {
	table := Compute([]DvPPair{{Buyer: "bob", Seller: "alice", PaymentToken: "T0", Price: big.NewInt(1000)}}, nil, nil, alwaysEligible)
	require.Equal(t, big.NewInt(-1000), table.Get("bob", "T0"))
	require.Equal(t, big.NewInt(1000), table.Get("alice", "T0"))
}

func TestComputeExcludesIneligibleParties(t *testing.T) {
	eligible := func(u string) bool { return u != "bob" }
	table := Compute([]DvPPair{{Buyer: "bob", Seller: "alice", PaymentToken: "T0", Price: big.NewInt(1000)}}, nil, nil, eligible)
	require.Empty(t, table)
}

func TestComputeCrossStablecoinScenario(t *testing.T) {
	dvp := []DvPPair{{Buyer: "bob", Seller: "alice", PaymentToken: "T0", Price: big.NewInt(1000)}}
	payments := []Payment{{Sender: "carol", Recipient: "alice", Token: "T1", Amount: big.NewInt(500)}}
	swaps := []SwapPair{{MakerA: "bob", SendTokenA: "T0", SendAmountA: big.NewInt(800), MakerB: "carol", SendTokenB: "T1", SendAmountB: big.NewInt(800)}}

	table := Compute(dvp, payments, swaps, alwaysEligible)

	require.Equal(t, big.NewInt(1000), table.Get("alice", "T0"))
	require.Equal(t, big.NewInt(500), table.Get("alice", "T1"))
	require.Equal(t, big.NewInt(-1800), table.Get("bob", "T0"))
	require.Equal(t, big.NewInt(800), table.Get("bob", "T1"))
	require.Equal(t, big.NewInt(-500), table.Get("carol", "T1"))
	require.Equal(t, big.NewInt(800), table.Get("carol", "T0"))
}

func TestUsersAndTokensSorted(t *testing.T) {
	dvp := []DvPPair{{Buyer: "zack", Seller: "abby", PaymentToken: "T0", Price: big.NewInt(10)}}
	table := Compute(dvp, nil, nil, alwaysEligible)
	require.Equal(t, []string{"abby", "zack"}, table.Users())
	require.Equal(t, []string{"T0"}, table.Tokens("abby"))
}
