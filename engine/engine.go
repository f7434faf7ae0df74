// Package engine wires the Token Adapter, User Registry, Order Book,
// Matcher, Obligation/Netting/Stake, Settlement Orchestrator, and Event Log
// components behind a single handle (spec section 2, "a facade package
// wires all nine into the External Interfaces... behind a single handle").
// Every mutating entry point serializes on one mutex instead of a
// package-level lock, in the Design Notes' "gate mutating entry points
// behind an explicit engine handle; do not rely on ambient singletons".
package engine

import (
	"context"
	"math/big"
	"sync"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/core/events"
	"github.com/smith5mc/clearing-sub001/native/common"
	"github.com/smith5mc/clearing-sub001/native/eventlog"
	"github.com/smith5mc/clearing-sub001/native/matcher"
	"github.com/smith5mc/clearing-sub001/native/orderbook"
	"github.com/smith5mc/clearing-sub001/native/registry"
	"github.com/smith5mc/clearing-sub001/native/settlement"
	"github.com/smith5mc/clearing-sub001/native/stake"
	"github.com/smith5mc/clearing-sub001/token"
)

// Engine is the clearing engine's single external handle. Construct one
// with New and register token adapters with RegisterToken before accepting
// any submissions.
type Engine struct {
	mu sync.Mutex

	Tokens   *token.Registry
	Registry *registry.Engine
	Book     *orderbook.Engine
	Store    *orderbook.MemStore
	Matcher  *matcher.Matcher
	Stake    *stake.Manager
	Orch     *settlement.Orchestrator
	Events   *eventlog.Log
	Pauses   *common.PauseRegistry
}

// New constructs a fully wired engine from the given cycle configuration.
// The returned engine's components all share the same token registry,
// order book store, and event log. amountScale bounds the magnitude of any
// single submitted amount (config.Config.AmountScale); pass nil to disable
// the check.
func New(cfg settlement.Config, amountScale *big.Int) *Engine {
	tokens := token.NewRegistry()
	reg := registry.NewEngine(tokens)
	reg.SetState(registry.NewMemState())

	store := orderbook.NewMemStore()
	book := orderbook.NewEngine(reg)
	book.SetState(store)

	pauses := common.NewPauseRegistry()
	book.SetPauses(pauses)
	book.SetAmountScale(amountScale)

	m := matcher.New(store, reg)
	stakeMgr := stake.NewManager(tokens, reg, cfg.StakeRateBps)
	orch := settlement.NewOrchestrator(reg, store, stakeMgr, tokens, cfg)

	log := eventlog.New(nil)
	reg.SetEmitter(log)
	book.SetEmitter(log)
	m.SetEmitter(log)
	orch.SetEmitter(log)

	return &Engine{
		Tokens:   tokens,
		Registry: reg,
		Book:     book,
		Store:    store,
		Matcher:  m,
		Stake:    stakeMgr,
		Orch:     orch,
		Events:   log,
		Pauses:   pauses,
	}
}

// SetFanOut configures an additional emitter (e.g. a stdout logger) that
// receives every event alongside the append-only log.
func (e *Engine) SetFanOut(fanOut events.Emitter) {
	e.Events.SetFanOut(fanOut)
}

// RegisterToken binds a token identifier to its adapter (fungible stablecoin
// ledger or non-fungible asset registry). Must be called before any order
// referencing the token is submitted.
func (e *Engine) RegisterToken(tokenID string, adapter token.Adapter) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Tokens.Register(tokenID, adapter)
}

func (e *Engine) guardIdle() error {
	if e.Orch.State() != settlement.Idle {
		return clearingerrors.ErrBusy
	}
	return nil
}

// --- Submission API (spec section 6) ---

// ConfigureUser replaces a participant's ranked accepted-token list.
func (e *Engine) ConfigureUser(user string, acceptedTokens []string) (*registry.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Registry.Configure(user, acceptedTokens)
}

// AddToken appends a token to a participant's accepted list.
func (e *Engine) AddToken(user, tokenID string) (*registry.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Registry.AddToken(user, tokenID)
}

// RemoveToken removes a token from a participant's accepted list.
func (e *Engine) RemoveToken(user, tokenID string) (*registry.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Registry.RemoveToken(user, tokenID)
}

// SetRank reorders a participant's accepted-token list.
func (e *Engine) SetRank(user string, tokens []string) (*registry.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Registry.SetRank(user, tokens)
}

// SubmitDvPBuy places a DvP buy order.
func (e *Engine) SubmitDvPBuy(maker, assetID string, serial uint64, paymentToken string, price *big.Int, counterparty string) (*orderbook.DvPOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return nil, err
	}
	return e.Book.SubmitDvPBuy(maker, assetID, serial, paymentToken, price, counterparty)
}

// SubmitDvPSell places a DvP sell order quoting one or more acceptable
// (token, price) pairs.
func (e *Engine) SubmitDvPSell(maker, assetID string, serial uint64, quotes []orderbook.PriceQuote, counterparty string) (*orderbook.DvPOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return nil, err
	}
	return e.Book.SubmitDvPSell(maker, assetID, serial, quotes, counterparty)
}

// CreatePaymentRequest registers a directed payment request.
func (e *Engine) CreatePaymentRequest(recipient, senderOrAny string, amount *big.Int) (*orderbook.PaymentRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return nil, err
	}
	return e.Book.CreatePaymentRequest(recipient, senderOrAny, amount)
}

// FulfillPaymentRequest commits the sender's payment instrument.
func (e *Engine) FulfillPaymentRequest(paymentID uint64, sender, chosenToken string) (*orderbook.PaymentRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return nil, err
	}
	return e.Book.FulfillPaymentRequest(paymentID, sender, chosenToken)
}

// SubmitSwapOrder registers a swap order and immediately attempts to match
// it (spec section 4.2: submission "immediately triggers a matching
// attempt").
func (e *Engine) SubmitSwapOrder(maker string, sendAmount *big.Int, sendToken string, receiveAmount *big.Int) (*orderbook.SwapOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return nil, err
	}
	order, err := e.Book.SubmitSwapOrder(maker, sendAmount, sendToken, receiveAmount)
	if err != nil {
		return nil, err
	}
	e.Matcher.MatchSwap()
	return order, nil
}

// CancelOrder cancels an active, unmatched DvP order.
func (e *Engine) CancelOrder(id uint64, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return err
	}
	return e.Book.CancelDvPOrder(id, caller)
}

// CancelPaymentRequest cancels an unfulfilled payment request.
func (e *Engine) CancelPaymentRequest(id uint64, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return err
	}
	return e.Book.CancelPaymentRequest(id, caller)
}

// CancelSwapOrder cancels an active, unmatched swap order.
func (e *Engine) CancelSwapOrder(id uint64, caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return err
	}
	return e.Book.CancelSwapOrder(id, caller)
}

// --- Cycle API (spec section 6) ---

// MatchDvPOrders runs one matching pass over the DvP book and returns the
// number of pairs matched.
func (e *Engine) MatchDvPOrders() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return 0, err
	}
	return e.Matcher.MatchDvP(), nil
}

// MatchSwapOrders runs one matching pass over the swap book and returns the
// number of pairs matched.
func (e *Engine) MatchSwapOrders() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guardIdle(); err != nil {
		return 0, err
	}
	return e.Matcher.MatchSwap(), nil
}

// PerformSettlement runs one settlement cycle to completion. It deliberately
// does not hold e.mu for the cycle's duration: a cycle can run for many
// phases, and e.mu is also what every other mutating entry point
// (SubmitDvPBuy, CancelOrder, ConfigureUser, ...) locks before calling
// guardIdle. Holding it here would serialize those callers behind the
// mutex itself, so by the time one acquired the lock Orch.cycleState would
// have already reverted to Idle and Busy could never be observed. Instead
// Orch.beginCycle claims Orch.cycleState atomically under its own lock, so
// a concurrent call that goes through guardIdle while a cycle is running
// sees Busy for the cycle's full duration, satisfying "single-writer
// serialization... across the whole cycle" (spec section 5).
func (e *Engine) PerformSettlement(ctx context.Context) (string, error) {
	return e.Orch.PerformSettlement(ctx)
}

// --- View API (spec section 6) ---

// GetUserConfig returns a participant's current configuration.
func (e *Engine) GetUserConfig(user string) (*registry.User, error) {
	return e.Registry.Get(user)
}

// GetOrder returns a DvP order by id.
func (e *Engine) GetOrder(id uint64) (*orderbook.DvPOrder, bool) {
	return e.Store.DvPGet(id)
}

// GetPaymentRequest returns a payment request by id.
func (e *Engine) GetPaymentRequest(id uint64) (*orderbook.PaymentRequest, bool) {
	return e.Store.PaymentGet(id)
}

// GetSwapOrder returns a swap order by id.
func (e *Engine) GetSwapOrder(id uint64) (*orderbook.SwapOrder, bool) {
	return e.Store.SwapGet(id)
}

// LastSettlementTime returns the unix timestamp of the last completed cycle.
func (e *Engine) LastSettlementTime() int64 { return e.Orch.LastSettlement() }

// CycleInterval returns the configured minimum seconds between cycles.
func (e *Engine) CycleInterval() int64 { return e.Orch.CycleInterval() }

// StakeRate returns the configured stake rate in basis points.
func (e *Engine) StakeRate() uint32 { return e.Orch.StakeRateBps() }

// CycleState reports the orchestrator's current phase, primarily for
// diagnostics.
func (e *Engine) CycleState() settlement.CycleState { return e.Orch.State() }
