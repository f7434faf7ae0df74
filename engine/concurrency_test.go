package engine

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/native/orderbook"
	"github.com/smith5mc/clearing-sub001/native/settlement"
	"github.com/smith5mc/clearing-sub001/token"
	tokenmemory "github.com/smith5mc/clearing-sub001/token/memory"
)

// blockingFungible wraps a token.Fungible and stalls its first BalanceOf
// call until release is closed, so a test can hold a settlement cycle open
// for as long as it needs to race a concurrent submission against it.
type blockingFungible struct {
	token.Fungible
	entered chan struct{}
	release chan struct{}
	once    bool
}

func (b *blockingFungible) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	if !b.once {
		b.once = true
		close(b.entered)
		<-b.release
	}
	return b.Fungible.BalanceOf(ctx, owner)
}

// TestPerformSettlementRejectsConcurrentSubmissionAsBusy proves that a
// mutating call issued while a settlement cycle is still running observes
// ErrBusy, rather than racing the mutex and only ever seeing the
// already-reverted Idle state (spec section 5: "at most one mutating
// operation proceeds to completion before the next begins").
func TestPerformSettlementRejectsConcurrentSubmissionAsBusy(t *testing.T) {
	cfg := settlement.Config{CycleIntervalSeconds: 0, StakeRateBps: 2000, MaxFailedCycles: 2}
	e := New(cfg, nil)
	ctx := context.Background()

	t0 := tokenmemory.NewLedger()
	blocker := &blockingFungible{Fungible: t0, entered: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, e.RegisterToken("T0", token.Adapter{Kind: token.KindFungible, Fungible: blocker}))
	assets := tokenmemory.NewAssetRegistry("ENGINE")
	require.NoError(t, e.RegisterToken("BOND7", token.NewNonFungible(assets)))

	_, err := e.ConfigureUser("alice", []string{"T0"})
	require.NoError(t, err)
	_, err = e.ConfigureUser("bob", []string{"T0"})
	require.NoError(t, err)

	assets.Mint("alice", "BOND7", 1)
	t0.Fund("bob", big.NewInt(1500))
	t0.Approve("bob", big.NewInt(1500))

	_, err = e.SubmitDvPBuy("bob", "BOND7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)
	_, err = e.SubmitDvPSell("alice", "BOND7", 1, []orderbook.PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "bob")
	require.NoError(t, err)
	n, err := e.MatchDvPOrders()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.PerformSettlement(ctx)
	}()

	select {
	case <-blocker.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("settlement cycle never reached the blocking stake collection call")
	}

	_, err = e.SubmitDvPBuy("alice", "BOND7", 2, "T0", big.NewInt(10), "bob")
	require.ErrorIs(t, err, clearingerrors.ErrBusy)

	close(blocker.release)
	<-done
}
