package settlement

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/native/matcher"
	"github.com/smith5mc/clearing-sub001/native/orderbook"
	"github.com/smith5mc/clearing-sub001/native/registry"
	"github.com/smith5mc/clearing-sub001/native/stake"
	"github.com/smith5mc/clearing-sub001/token"
	tokenmemory "github.com/smith5mc/clearing-sub001/token/memory"
)

type harness struct {
	reg     *registry.Engine
	book    *orderbook.Engine
	store   *orderbook.MemStore
	matcher *matcher.Matcher
	tokens  *token.Registry
	orch    *Orchestrator
	assets  *tokenmemory.AssetRegistry
	ledgers map[string]*tokenmemory.Ledger
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	tokens := token.NewRegistry()
	ledgers := map[string]*tokenmemory.Ledger{}
	for _, id := range []string{"T0", "T1", "T2"} {
		l := tokenmemory.NewLedger()
		ledgers[id] = l
		require.NoError(t, tokens.Register(id, token.NewFungible(l)))
	}
	assets := tokenmemory.NewAssetRegistry("ENGINE")
	require.NoError(t, tokens.Register("BOND7", token.NewNonFungible(assets)))

	regEngine := registry.NewEngine(tokens)
	regEngine.SetState(registry.NewMemState())

	store := orderbook.NewMemStore()
	book := orderbook.NewEngine(regEngine)
	book.SetState(store)

	m := matcher.New(store, regEngine)

	stakeMgr := stake.NewManager(tokens, regEngine, cfg.StakeRateBps)

	orch := NewOrchestrator(regEngine, store, stakeMgr, tokens, cfg)

	return &harness{reg: regEngine, book: book, store: store, matcher: m, tokens: tokens, orch: orch, assets: assets, ledgers: ledgers}
}

func defaultConfig() Config {
	return Config{CycleIntervalSeconds: 300, StakeRateBps: 2000, MaxFailedCycles: 2}
}

func fund(h *harness, user, tok string, balance, allowance int64) {
	h.ledgers[tok].Fund(user, big.NewInt(balance))
	h.ledgers[tok].Approve(user, big.NewInt(allowance))
}

func TestSettlementPureDvP(t *testing.T) {
	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	_, err := h.reg.Configure("alice", []string{"T0"})
	require.NoError(t, err)
	_, err = h.reg.Configure("bob", []string{"T0"})
	require.NoError(t, err)

	h.assets.Mint("alice", "BOND7", 1)
	fund(h, "bob", "T0", 1200, 1200)

	_, err = h.book.SubmitDvPBuy("bob", "BOND7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)
	_, err = h.book.SubmitDvPSell("alice", "BOND7", 1, []orderbook.PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "bob")
	require.NoError(t, err)

	require.Equal(t, 1, h.matcher.MatchDvP())

	h.orch.SetNowFunc(func() int64 { return 1_000_000 })
	cycleID, err := h.orch.PerformSettlement(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cycleID)

	owner, err := h.assets.OwnerOf(ctx, "BOND7", 1)
	require.NoError(t, err)
	require.Equal(t, "bob", owner)

	aliceBal, _ := h.ledgers["T0"].BalanceOf(ctx, "alice")
	require.Equal(t, big.NewInt(1000), aliceBal)

	require.Zero(t, h.ledgers["T0"].CustodyBalance().Sign())

	for _, id := range h.store.DvPAll() {
		require.False(t, id.Active)
	}
}

func TestSettlementCrossStablecoinNetting(t *testing.T) {
	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	_, err := h.reg.Configure("alice", []string{"T0", "T1", "T2"})
	require.NoError(t, err)
	_, err = h.reg.Configure("bob", []string{"T0", "T1"})
	require.NoError(t, err)
	_, err = h.reg.Configure("carol", []string{"T1", "T0"})
	require.NoError(t, err)

	h.assets.Mint("alice", "BOND7", 1)
	fund(h, "bob", "T0", 3000, 3000)
	fund(h, "bob", "T1", 3000, 3000)
	fund(h, "carol", "T1", 3000, 3000)
	fund(h, "carol", "T0", 3000, 3000)

	_, err = h.book.SubmitDvPBuy("bob", "BOND7", 1, "T0", big.NewInt(1000), "alice")
	require.NoError(t, err)
	_, err = h.book.SubmitDvPSell("alice", "BOND7", 1, []orderbook.PriceQuote{{Token: "T0", Price: big.NewInt(1000)}}, "bob")
	require.NoError(t, err)
	require.Equal(t, 1, h.matcher.MatchDvP())

	payment, err := h.book.CreatePaymentRequest("alice", "carol", big.NewInt(500))
	require.NoError(t, err)
	_, err = h.book.FulfillPaymentRequest(payment.ID, "carol", "T1")
	require.NoError(t, err)

	_, err = h.book.SubmitSwapOrder("bob", big.NewInt(800), "T0", big.NewInt(800))
	require.NoError(t, err)
	_, err = h.book.SubmitSwapOrder("carol", big.NewInt(800), "T1", big.NewInt(800))
	require.NoError(t, err)
	require.Equal(t, 1, h.matcher.MatchSwap())

	h.orch.SetNowFunc(func() int64 { return 1_000_000 })
	_, err = h.orch.PerformSettlement(ctx)
	require.NoError(t, err)

	aliceT0, _ := h.ledgers["T0"].BalanceOf(ctx, "alice")
	aliceT1, _ := h.ledgers["T1"].BalanceOf(ctx, "alice")
	aliceTotal := new(big.Int).Add(aliceT0, aliceT1)
	require.Equal(t, big.NewInt(1500), aliceTotal)

	for _, l := range h.ledgers {
		require.Zero(t, l.CustodyBalance().Sign())
	}
}

func TestSettlementTooSoon(t *testing.T) {
	h := newHarness(t, defaultConfig())
	h.orch.SetNowFunc(func() int64 { return 1_000_000 })
	_, err := h.orch.PerformSettlement(context.Background())
	require.NoError(t, err)

	_, err = h.orch.PerformSettlement(context.Background())
	require.ErrorIs(t, err, clearingerrors.ErrTooSoon)
}
