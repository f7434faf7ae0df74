package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/core/events"
	"github.com/smith5mc/clearing-sub001/native/obligation"
	"github.com/smith5mc/clearing-sub001/native/orderbook"
	"github.com/smith5mc/clearing-sub001/native/registry"
	"github.com/smith5mc/clearing-sub001/native/stake"
	"github.com/smith5mc/clearing-sub001/observability"
	"github.com/smith5mc/clearing-sub001/token"
)

// registryView is the narrow registry surface the orchestrator needs: a
// participant's ranked accepted-token list (disbursement order) and
// membership checks are resolved through stake.Manager, which already
// depends on the same interface; the orchestrator asks the registry
// directly only for the ranked list used in Phase 7.
type registryView interface {
	AcceptedTokensOf(user string) ([]string, error)
}

// Orchestrator drives the settlement cycle state machine (spec section
// 4.4). It owns no order data itself; it reads and mutates the order book
// through orderbook.MemStore and moves value through the shared
// token.Registry, in the same "Engine composing concrete collaborators"
// shape as native/escrow.Engine composing its trade engine and voucher
// store in the teacher repo.
type Orchestrator struct {
	registry registryView
	book     *orderbook.MemStore
	stakeMgr *stake.Manager
	tokens   *token.Registry
	emitter  events.Emitter
	nowFn    func() int64

	cfg Config

	mu             sync.Mutex
	lastSettlement int64
	cycleState     CycleState
}

// NewOrchestrator constructs a settlement orchestrator bound to its
// collaborators and cycle configuration.
func NewOrchestrator(reg *registry.Engine, book *orderbook.MemStore, stakeMgr *stake.Manager, tokens *token.Registry, cfg Config) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		book:     book,
		stakeMgr: stakeMgr,
		tokens:   tokens,
		emitter:  events.NoopEmitter{},
		cfg:      cfg,
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (o *Orchestrator) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		o.emitter = events.NoopEmitter{}
		return
	}
	o.emitter = emitter
}

// SetNowFunc overrides the orchestrator's clock, for deterministic tests.
func (o *Orchestrator) SetNowFunc(fn func() int64) { o.nowFn = fn }

func (o *Orchestrator) now() int64 {
	if o.nowFn != nil {
		return o.nowFn()
	}
	return time.Now().Unix()
}

func (o *Orchestrator) emit(evt events.Event) {
	if o == nil || o.emitter == nil {
		return
	}
	o.emitter.Emit(evt)
}

// LastSettlement returns the unix timestamp of the last completed cycle.
func (o *Orchestrator) LastSettlement() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSettlement
}

// State reports the orchestrator's current cycle phase.
func (o *Orchestrator) State() CycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cycleState
}

// CycleInterval returns the configured minimum seconds between cycles.
func (o *Orchestrator) CycleInterval() int64 { return o.cfg.CycleIntervalSeconds }

// StakeRateBps returns the configured stake rate in basis points.
func (o *Orchestrator) StakeRateBps() uint32 { return o.cfg.StakeRateBps }

// MaxFailedCycles returns the configured retry cap.
func (o *Orchestrator) MaxFailedCycles() uint32 { return o.cfg.MaxFailedCycles }

func (o *Orchestrator) setState(s CycleState) {
	o.mu.Lock()
	o.cycleState = s
	o.mu.Unlock()
}

// attempt holds one pass through Phases 1-5. A cycle runs one attempt, and
// at most one additional attempt after excluding that attempt's
// defaulters (spec section 4.4, Phase 5, "a single cycle permits up to
// one restart").
type attempt struct {
	participants []string
	grossOut     map[string]*big.Int
	eligible     map[string]bool

	// Snapshots of Phase 2's draw, indexed by user. stakeOriginal is the
	// immutable record of what Phase 2 collected; stakeRemaining starts
	// as a copy and is drawn down by Phase 5 step 2 as stake is applied
	// toward a negative net obligation.
	stakeOriginal  map[string]stake.Collected
	stakeRemaining map[string]stake.Collected
	residualPaid   map[string]stake.Collected

	dvpPairs  []*dvpItem
	payments  []*orderbook.PaymentRequest
	swapPairs []*swapItem

	netTable obligation.NetTable
	aggNet   map[string]*big.Int

	defaulters []string
}

// dvpItem is a matched DvP buy/sell pair carried through the cycle so
// Phase 6/9 can reach back into the order book by id.
type dvpItem struct {
	Buy    *orderbook.DvPOrder
	Sell   *orderbook.DvPOrder
	Locked bool
}

// swapItem is a matched swap pair, similarly carried through for Phase 9.
type swapItem struct {
	A *orderbook.SwapOrder
	B *orderbook.SwapOrder
}

// beginCycle atomically checks the interval gate and claims the cycle
// state machine in one critical section, so a concurrent caller — whether
// another PerformSettlement invocation or a submission/cancellation entry
// point checking guardIdle — observes a consistent Busy/TooSoon/Idle view
// instead of racing setState calls made one at a time (spec section 5:
// "at most one mutating operation proceeds to completion before the next
// begins").
func (o *Orchestrator) beginCycle(now int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cycleState != Idle {
		return clearingerrors.ErrBusy
	}
	if now < o.lastSettlement+o.cfg.CycleIntervalSeconds {
		return clearingerrors.ErrTooSoon
	}
	o.cycleState = CollectParticipants
	return nil
}

// PerformSettlement runs one settlement cycle to completion, returning the
// cycle id. It rejects with ErrTooSoon if the configured interval has not
// elapsed since the last cycle, and with ErrBusy if another cycle is
// already in progress (spec section 4.4, section 5). The engine facade
// does not serialize calls to this method itself — the orchestrator's own
// cycleState is the single source of truth for "a cycle is running", so a
// concurrent submission can observe Busy for the cycle's full duration
// rather than only after it has already finished.
func (o *Orchestrator) PerformSettlement(ctx context.Context) (string, error) {
	start := time.Now()
	metrics := observability.Settlement()
	now := o.now()
	if err := o.beginCycle(now); err != nil {
		return "", err
	}

	cycleID := uuid.NewString()
	slog.InfoContext(ctx, "settlement: cycle starting", slog.String("cycle_id", cycleID))
	defer o.setState(Idle)
	defer func() { metrics.ObservePhase("total", time.Since(start)) }()

	excluded := map[string]bool{}
	seizurePool := map[string]*big.Int{}

	var att *attempt
	for round := 0; round < 2; round++ {
		var err error
		att, err = o.runPhases1to5(ctx, cycleID, excluded)
		if err != nil {
			metrics.RecordOutcome("failed")
			o.emit(events.SettlementFailed{CycleID: cycleID, Reason: err.Error()})
			slog.ErrorContext(ctx, "settlement: phases 1-5 failed", slog.String("cycle_id", cycleID), slog.String("error", err.Error()))
			return cycleID, err
		}
		metrics.SetParticipants(len(att.participants))
		if len(att.defaulters) == 0 {
			break
		}
		for _, d := range att.defaulters {
			metrics.RecordDefault()
			o.emit(events.ParticipantDefaulted{CycleID: cycleID, User: d})
		}
		slog.WarnContext(ctx, "settlement: participants defaulted", slog.String("cycle_id", cycleID), slog.Int("round", round), slog.Any("defaulters", att.defaulters))
		if round == 1 {
			// Second consecutive default: terminate in failure.
			for tok, amt := range o.seizeDefaulters(cycleID, att) {
				seizurePool[tok] = addBig(seizurePool[tok], amt)
			}
			if err := o.rollback(ctx, cycleID, att, true, seizurePool); err != nil {
				metrics.RecordOutcome("failed")
				return cycleID, fmt.Errorf("clearing: rollback after second default failed: %w", err)
			}
			for tok, amt := range seizurePool {
				metrics.RecordSeizure(tok, bigToFloat(amt))
			}
			metrics.RecordOutcome("defaulted")
			o.emit(events.SettlementFailed{CycleID: cycleID, Reason: "second consecutive settlement default"})
			slog.ErrorContext(ctx, "settlement: cycle terminated after second default", slog.String("cycle_id", cycleID))
			return cycleID, clearingerrors.ErrSettlementDefault
		}
		// First default: seize defaulters' stake, refund everyone else in
		// full, exclude the defaulters, and restart from Phase 1.
		for tok, amt := range o.seizeDefaulters(cycleID, att) {
			seizurePool[tok] = addBig(seizurePool[tok], amt)
		}
		if err := o.refundNonDefaulters(ctx, cycleID, att); err != nil {
			metrics.RecordOutcome("failed")
			o.emit(events.SettlementFailed{CycleID: cycleID, Reason: err.Error()})
			return cycleID, err
		}
		// The excluded defaulters' own items will not appear in the
		// restarted attempt at all (Phase 1's touches() filter drops them),
		// so this is the only point this cycle where their failed_cycles
		// counter is bumped — without it a chronic defaulter's item would
		// retry forever instead of ever hitting the retry cap.
		o.bumpDefaulterItems(att)
		for _, d := range att.defaulters {
			excluded[d] = true
		}
	}

	// Items touching a stake-shortfall participant were excluded from
	// obligation/netting and will never finalize this cycle (Phase 3's
	// eligibleFn, Finalize's eligibility check); that "fails the item" for
	// this cycle exactly as a default or an unwinding rollback would, so it
	// counts toward the retry cap too.
	o.bumpIneligibleItems(att)

	o.setState(LockAssets)
	phaseStart := time.Now()
	if err := o.lockAssets(ctx, att); err != nil {
		if rerr := o.rollback(ctx, cycleID, att, false, seizurePool); rerr != nil {
			metrics.RecordOutcome("failed")
			return cycleID, fmt.Errorf("clearing: rollback after lock-assets failure failed: %w", rerr)
		}
		metrics.RecordOutcome("rolled_back")
		o.emit(events.SettlementFailed{CycleID: cycleID, Reason: err.Error()})
		slog.ErrorContext(ctx, "settlement: rolled back after lock-assets failure", slog.String("cycle_id", cycleID), slog.String("error", err.Error()))
		return cycleID, err
	}
	metrics.ObservePhase("lock_assets", time.Since(phaseStart))

	o.setState(Disburse)
	phaseStart = time.Now()
	if err := o.disburse(ctx, cycleID, att); err != nil {
		if rerr := o.rollback(ctx, cycleID, att, false, seizurePool); rerr != nil {
			metrics.RecordOutcome("failed")
			return cycleID, fmt.Errorf("clearing: rollback after disbursement failure failed: %w", rerr)
		}
		metrics.RecordOutcome("rolled_back")
		o.emit(events.SettlementFailed{CycleID: cycleID, Reason: err.Error()})
		slog.ErrorContext(ctx, "settlement: rolled back after disbursement failure", slog.String("cycle_id", cycleID), slog.String("error", err.Error()))
		return cycleID, err
	}
	metrics.ObservePhase("disburse", time.Since(phaseStart))

	if err := o.refundResidualStake(ctx, cycleID, att); err != nil {
		if rerr := o.rollback(ctx, cycleID, att, false, seizurePool); rerr != nil {
			metrics.RecordOutcome("failed")
			return cycleID, fmt.Errorf("clearing: rollback after stake refund failure failed: %w", rerr)
		}
		metrics.RecordOutcome("rolled_back")
		o.emit(events.SettlementFailed{CycleID: cycleID, Reason: err.Error()})
		slog.ErrorContext(ctx, "settlement: rolled back after stake refund failure", slog.String("cycle_id", cycleID), slog.String("error", err.Error()))
		return cycleID, err
	}

	o.setState(Finalize)
	if err := o.finalize(ctx, cycleID, now, att, seizurePool); err != nil {
		metrics.RecordOutcome("failed")
		slog.ErrorContext(ctx, "settlement: finalize failed", slog.String("cycle_id", cycleID), slog.String("error", err.Error()))
		return cycleID, err
	}
	metrics.RecordOutcome("completed")
	slog.InfoContext(ctx, "settlement: cycle completed", slog.String("cycle_id", cycleID), slog.Int("participants", len(att.participants)))
	return cycleID, nil
}
