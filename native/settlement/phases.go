package settlement

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/core/events"
	"github.com/smith5mc/clearing-sub001/native/netting"
	"github.com/smith5mc/clearing-sub001/native/obligation"
	"github.com/smith5mc/clearing-sub001/native/orderbook"
	"github.com/smith5mc/clearing-sub001/native/stake"
)

// runPhases1to5 executes one attempt at Phases 1 through 5 (spec section
// 4.4): it collects participants and gross-out, collects stake, computes
// obligations over eligible parties, aggregates, and locks in the pay-in
// side of the net position. excluded names users removed from the cycle by
// a prior attempt's default (spec: "remove defaulters' items from the
// cycle... and restart from Phase 1").
func (o *Orchestrator) runPhases1to5(ctx context.Context, cycleID string, excluded map[string]bool) (*attempt, error) {
	o.setState(CollectParticipants)
	att := &attempt{
		grossOut:       make(map[string]*big.Int),
		eligible:       make(map[string]bool),
		stakeOriginal:  make(map[string]stake.Collected),
		stakeRemaining: make(map[string]stake.Collected),
		residualPaid:   make(map[string]stake.Collected),
	}

	touches := func(users ...string) bool {
		for _, u := range users {
			if excluded[u] {
				return true
			}
		}
		return false
	}
	addGross := func(user, token string, amount *big.Int) {
		if _, ok := att.grossOut[user]; !ok {
			att.grossOut[user] = big.NewInt(0)
		}
		att.grossOut[user].Add(att.grossOut[user], amount)
	}
	participantSet := make(map[string]bool)

	for _, buy := range o.book.DvPAll() {
		if buy.Side != orderbook.SideBuy || !buy.Active || !buy.Matched() {
			continue
		}
		sell, ok := o.book.DvPGet(buy.MatchedWith)
		if !ok || !sell.Active || sell.MatchedWith != buy.ID {
			continue
		}
		if touches(buy.Maker, sell.Maker) {
			continue
		}
		att.dvpPairs = append(att.dvpPairs, &dvpItem{Buy: buy, Sell: sell})
		addGross(buy.Maker, buy.PaymentToken, buy.Price)
		participantSet[buy.Maker] = true
		participantSet[sell.Maker] = true
	}

	for _, p := range o.book.PaymentAll() {
		if !p.Active || !p.Fulfilled {
			continue
		}
		if touches(p.Sender, p.Recipient) {
			continue
		}
		att.payments = append(att.payments, p)
		addGross(p.Sender, p.FulfilledToken, p.Amount)
		participantSet[p.Sender] = true
		participantSet[p.Recipient] = true
	}

	for _, a := range o.book.SwapAll() {
		if !a.Active || !a.Matched() || a.MatchedPeerID < a.ID {
			// Skip the second leg of an already-counted pair; process each
			// matched pair exactly once from its lower-id side.
			continue
		}
		b, ok := o.book.SwapGet(a.MatchedPeerID)
		if !ok || !b.Active || b.MatchedPeerID != a.ID {
			continue
		}
		if touches(a.Maker, b.Maker) {
			continue
		}
		att.swapPairs = append(att.swapPairs, &swapItem{A: a, B: b})
		addGross(a.Maker, a.SendToken, a.SendAmount)
		addGross(b.Maker, b.SendToken, b.SendAmount)
		participantSet[a.Maker] = true
		participantSet[b.Maker] = true
	}

	for u := range participantSet {
		att.participants = append(att.participants, u)
	}
	sort.Strings(att.participants)

	// Phase 2 — stake collection.
	o.setState(CollectStake)
	for _, user := range att.participants {
		quota := o.stakeMgr.Quota(att.grossOut[user])
		collected, ok, err := o.stakeMgr.Collect(ctx, user, quota)
		if err != nil {
			o.refundAll(ctx, att.stakeOriginal, att.participants)
			return nil, fmt.Errorf("clearing: stake collection for %s: %w", user, err)
		}
		att.stakeOriginal[user] = collected
		att.stakeRemaining[user] = collected.Clone()
		for _, tok := range sortedKeys(collected) {
			o.emit(events.StakeCollected{CycleID: cycleID, User: user, Token: tok, Amount: collected[tok]})
		}
		if ok {
			att.eligible[user] = true
			continue
		}
		// Stake shortfall: the participant is ineligible for this cycle.
		// Whatever partial stake was drawn never covers an obligation, so
		// it is returned immediately rather than held until Rollback —
		// nothing downstream will touch this user again this cycle.
		att.eligible[user] = false
		if err := o.stakeMgr.Refund(ctx, user, collected); err != nil {
			return nil, fmt.Errorf("clearing: stake shortfall refund for %s: %w", user, err)
		}
		for _, tok := range sortedKeys(collected) {
			o.emit(events.StakeRefunded{CycleID: cycleID, User: user, Token: tok, Amount: collected[tok]})
		}
		delete(att.stakeOriginal, user)
		delete(att.stakeRemaining, user)
	}

	// Phase 3 — obligation calculation over eligible parties only.
	o.setState(ComputeObligations)
	eligibleFn := func(u string) bool { return att.eligible[u] }
	att.netTable = obligation.Compute(dvpPairsToObligation(att.dvpPairs), paymentsToObligation(att.payments), swapPairsToObligation(att.swapPairs), eligibleFn)
	if err := netting.CheckPerTokenConservation(att.netTable); err != nil {
		o.refundAll(ctx, att.stakeOriginal, att.participants)
		return nil, err
	}

	// Phase 4 — aggregation.
	o.setState(Aggregate)
	att.aggNet = netting.Aggregate(att.netTable)
	if err := netting.CheckConservation(att.aggNet); err != nil {
		o.refundAll(ctx, att.stakeOriginal, att.participants)
		return nil, err
	}

	// Phase 5 — lock net (pay-in side).
	o.setState(LockNet)
	for _, user := range att.netTable.Users() {
		net := att.aggNet[user]
		if net == nil || net.Sign() >= 0 {
			continue
		}
		owed := new(big.Int).Neg(net)
		applied, remaining := o.stakeMgr.ApplyToObligation(user, att.stakeRemaining[user], owed)
		for _, tok := range sortedKeys(applied) {
			o.emit(events.CrossStablecoinNetted{CycleID: cycleID, User: user, Aggregate: net, Token: tok, Amount: applied[tok]})
		}
		if remaining.Sign() > 0 {
			paid, stillOwed, err := o.stakeMgr.DebitResidual(ctx, user, remaining)
			if err != nil {
				return nil, fmt.Errorf("clearing: residual debit for %s: %w", user, err)
			}
			att.residualPaid[user] = paid
			for _, tok := range sortedKeys(paid) {
				o.emit(events.CrossStablecoinNetted{CycleID: cycleID, User: user, Aggregate: net, Token: tok, Amount: paid[tok]})
			}
			if stillOwed.Sign() > 0 {
				att.defaulters = append(att.defaulters, user)
			}
		}
	}
	sort.Strings(att.defaulters)

	return att, nil
}

// refundAll returns every token drawn so far (across every participant) for
// the case where an internal error forces an attempt to abort before
// Phase 5 locks anything in. It logs but does not propagate refund errors,
// since the caller is already returning the original failure.
func (o *Orchestrator) refundAll(ctx context.Context, collected map[string]stake.Collected, participants []string) {
	for _, user := range participants {
		amounts, ok := collected[user]
		if !ok {
			continue
		}
		_ = o.stakeMgr.Refund(ctx, user, amounts)
	}
}

// seizeDefaulters removes each defaulter's full stake draw for this attempt
// from circulation and returns the aggregated seizure pool (spec section
// 4.4, Phase 5: "seize all stake_collected of defaulters into a seizure
// pool"). Any partial residual pay-in already drawn from a defaulter's
// wallet (Phase 5 step 3) is folded in too: those tokens are already in
// engine custody and the defaulter forfeits them alongside their stake,
// rather than leaving them stranded outside the pool-drain invariant.
func (o *Orchestrator) seizeDefaulters(cycleID string, att *attempt) map[string]*big.Int {
	pool := make(map[string]*big.Int)
	for _, user := range att.defaulters {
		for _, tok := range sortedKeys(att.stakeOriginal[user]) {
			amt := att.stakeOriginal[user][tok]
			pool[tok] = addBig(pool[tok], amt)
			o.emit(events.StakeSeized{CycleID: cycleID, User: user, Token: tok, Amount: amt})
		}
		for _, tok := range sortedKeys(att.residualPaid[user]) {
			amt := att.residualPaid[user][tok]
			pool[tok] = addBig(pool[tok], amt)
			o.emit(events.StakeSeized{CycleID: cycleID, User: user, Token: tok, Amount: amt})
		}
		delete(att.stakeOriginal, user)
		delete(att.stakeRemaining, user)
		delete(att.residualPaid, user)
	}
	return pool
}

// refundNonDefaulters returns every token drawn this attempt (stake and
// residual pay-in) to every participant not in att.defaulters, ahead of a
// Phase-1 restart (spec section 4.4, Phase 5: "return every already-
// collected token... of non-defaulters").
func (o *Orchestrator) refundNonDefaulters(ctx context.Context, cycleID string, att *attempt) error {
	defaulter := make(map[string]bool, len(att.defaulters))
	for _, d := range att.defaulters {
		defaulter[d] = true
	}
	for _, user := range att.participants {
		if defaulter[user] {
			continue
		}
		combined := mergeCollected(att.stakeOriginal[user], att.residualPaid[user])
		if len(combined) == 0 {
			continue
		}
		if err := o.stakeMgr.Refund(ctx, user, combined); err != nil {
			return fmt.Errorf("clearing: refund non-defaulter %s: %w", user, err)
		}
		for _, tok := range sortedKeys(combined) {
			o.emit(events.StakeRefunded{CycleID: cycleID, User: user, Token: tok, Amount: combined[tok]})
		}
	}
	return nil
}

// lockAssets implements Phase 6: for every matched DvP pair whose parties
// are both eligible, move the seller's asset into engine custody. Items
// touching an ineligible party were already excluded from netting in
// Phase 3 and are skipped here too — they remain matched for a future
// cycle.
func (o *Orchestrator) lockAssets(ctx context.Context, att *attempt) error {
	for _, item := range att.dvpPairs {
		if !att.eligible[item.Buy.Maker] || !att.eligible[item.Sell.Maker] {
			continue
		}
		nf, err := o.tokens.NonFungible(item.Sell.AssetID)
		if err != nil {
			return fmt.Errorf("clearing: asset lock: %w", err)
		}
		if err := nf.AssetTransferFrom(ctx, item.Sell.Maker, item.Sell.AssetID, item.Sell.TokenSerial); err != nil {
			return fmt.Errorf("clearing: asset lock for pair (%d,%d): %w", item.Buy.ID, item.Sell.ID, err)
		}
		item.Locked = true
	}
	return nil
}

// disburse implements Phase 7: pay every user with a positive aggregate net
// position out of the engine's collected pool, walking their ranked
// accepted_tokens and falling back to any other pool-held token in
// deterministic (sorted) order if the ranked list cannot cover it in full.
func (o *Orchestrator) disburse(ctx context.Context, cycleID string, att *attempt) error {
	for _, user := range att.netTable.Users() {
		due := att.aggNet[user]
		if due == nil || due.Sign() <= 0 {
			continue
		}
		remaining := new(big.Int).Set(due)
		ranked, err := o.registry.AcceptedTokensOf(user)
		if err != nil {
			ranked = nil
		}
		tried := make(map[string]bool, len(ranked))
		for _, tok := range ranked {
			if remaining.Sign() <= 0 {
				break
			}
			tried[tok] = true
			if err := o.payFromPool(ctx, cycleID, user, tok, due, remaining); err != nil {
				return err
			}
		}
		if remaining.Sign() > 0 {
			for _, tok := range o.tokens.Known() {
				if remaining.Sign() <= 0 {
					break
				}
				if tried[tok] {
					continue
				}
				if err := o.payFromPool(ctx, cycleID, user, tok, due, remaining); err != nil {
					return err
				}
			}
		}
		if remaining.Sign() > 0 {
			return fmt.Errorf("%w: %s short %s after exhausting pool", clearingerrors.ErrSettlementDefault, user, remaining.String())
		}
	}
	return nil
}

func (o *Orchestrator) payFromPool(ctx context.Context, cycleID, user, tok string, aggregate, remaining *big.Int) error {
	fungible, err := o.tokens.Fungible(tok)
	if err != nil {
		return nil
	}
	poolBalance, err := fungible.PoolBalance(ctx)
	if err != nil {
		return fmt.Errorf("clearing: pool balance for %s: %w", tok, err)
	}
	pay := new(big.Int).Set(remaining)
	if poolBalance.Cmp(pay) < 0 {
		pay = new(big.Int).Set(poolBalance)
	}
	if pay.Sign() <= 0 {
		return nil
	}
	if err := fungible.Transfer(ctx, user, pay); err != nil {
		return fmt.Errorf("clearing: disbursement to %s in %s: %w", user, tok, err)
	}
	remaining.Sub(remaining, pay)
	o.emit(events.CrossStablecoinNetted{CycleID: cycleID, User: user, Aggregate: aggregate, Token: tok, Amount: pay})
	return nil
}

// refundResidualStake implements Phase 8: return whatever stake remains
// uncommitted to a pay-in (the surplus over a negative user's owed amount,
// or the entirety for a breakeven/positive user) to every participant.
func (o *Orchestrator) refundResidualStake(ctx context.Context, cycleID string, att *attempt) error {
	for _, user := range att.participants {
		remaining := att.stakeRemaining[user]
		if len(remaining) == 0 {
			continue
		}
		if err := o.stakeMgr.Refund(ctx, user, remaining); err != nil {
			return fmt.Errorf("clearing: residual stake refund for %s: %w", user, err)
		}
		for _, tok := range sortedKeys(remaining) {
			o.emit(events.StakeRefunded{CycleID: cycleID, User: user, Token: tok, Amount: remaining[tok]})
		}
	}
	return nil
}

// finalize implements Phase 9: transfer locked assets to their buyers,
// deactivate every settled item, and emit SettlementCompleted. seizurePool
// carries stake seized from a defaulter excluded by an earlier round's
// restart (spec section 9, Open Questions: redistribution is weighted by
// gross volume); if this attempt goes on to succeed, that stake is owed to
// the cycle's eligible participants rather than left stranded in engine
// custody, preserving the pool-drain invariant (spec section 8).
func (o *Orchestrator) finalize(ctx context.Context, cycleID string, now int64, att *attempt, seizurePool map[string]*big.Int) error {
	for _, item := range att.dvpPairs {
		if !item.Locked {
			continue
		}
		nf, err := o.tokens.NonFungible(item.Sell.AssetID)
		if err != nil {
			return fmt.Errorf("clearing: finalize asset transfer: %w", err)
		}
		if err := nf.AssetTransfer(ctx, item.Buy.Maker, item.Sell.AssetID, item.Sell.TokenSerial); err != nil {
			return fmt.Errorf("clearing: finalize asset transfer for pair (%d,%d): %w", item.Buy.ID, item.Sell.ID, err)
		}
		item.Buy.Active = false
		item.Sell.Active = false
		item.Sell.Locked = false
		_ = o.book.DvPPut(item.Buy)
		_ = o.book.DvPPut(item.Sell)
	}
	for _, p := range att.payments {
		if !att.eligible[p.Sender] || !att.eligible[p.Recipient] {
			continue
		}
		p.Active = false
		_ = o.book.PaymentPut(p)
	}
	for _, item := range att.swapPairs {
		if !att.eligible[item.A.Maker] || !att.eligible[item.B.Maker] {
			continue
		}
		item.A.Active = false
		item.B.Active = false
		_ = o.book.SwapPut(item.A)
		_ = o.book.SwapPut(item.B)
	}

	if len(seizurePool) > 0 {
		recipients := make([]string, 0, len(att.participants))
		for _, u := range att.participants {
			if att.eligible[u] {
				recipients = append(recipients, u)
			}
		}
		redistributed, err := stake.Redistribute(ctx, o.tokens, seizurePool, recipients, att.grossOut)
		if err != nil {
			return fmt.Errorf("clearing: finalize seizure redistribution: %w", err)
		}
		for _, user := range recipients {
			for _, tok := range sortedKeys(redistributed[user]) {
				amt := redistributed[user][tok]
				if amt.Sign() <= 0 {
					continue
				}
				o.emit(events.StakeRedistributed{CycleID: cycleID, User: user, Token: tok, Amount: amt})
			}
		}
	}

	o.mu.Lock()
	o.lastSettlement = now
	o.mu.Unlock()
	o.emit(events.SettlementCompleted{CycleID: cycleID, Timestamp: now, Digest: settlementDigest(cycleID, att)})
	return nil
}

// rollback implements the Rollback transition: every token debited this
// cycle is returned to its contributor, any locked asset is returned to
// its seller, and every still-active matched item that participated gets
// its failed_cycles counter bumped (cancelling it outright past the
// configured cap). If the rollback followed a default, seizurePool is
// redistributed pro rata to the aborted cycle's eligible non-defaulters.
func (o *Orchestrator) rollback(ctx context.Context, cycleID string, att *attempt, triggeredByDefault bool, seizurePool map[string]*big.Int) error {
	o.setState(RollbackState)
	defaulter := make(map[string]bool, len(att.defaulters))
	for _, d := range att.defaulters {
		defaulter[d] = true
	}
	for _, user := range att.participants {
		if defaulter[user] {
			continue
		}
		combined := mergeCollected(att.stakeOriginal[user], att.residualPaid[user])
		if len(combined) == 0 {
			continue
		}
		if err := o.stakeMgr.Refund(ctx, user, combined); err != nil {
			return fmt.Errorf("clearing: rollback refund for %s: %w", user, err)
		}
		for _, tok := range sortedKeys(combined) {
			o.emit(events.StakeRefunded{CycleID: cycleID, User: user, Token: tok, Amount: combined[tok]})
		}
	}

	for _, item := range att.dvpPairs {
		if !item.Locked {
			continue
		}
		nf, err := o.tokens.NonFungible(item.Sell.AssetID)
		if err != nil {
			return fmt.Errorf("clearing: rollback asset return: %w", err)
		}
		if err := nf.AssetTransfer(ctx, item.Sell.Maker, item.Sell.AssetID, item.Sell.TokenSerial); err != nil {
			return fmt.Errorf("clearing: rollback asset return for pair (%d,%d): %w", item.Buy.ID, item.Sell.ID, err)
		}
		item.Locked = false
	}

	for _, item := range att.dvpPairs {
		o.bumpFailedDvP(item.Buy)
		o.bumpFailedDvP(item.Sell)
	}
	for _, p := range att.payments {
		o.bumpFailedPayment(p)
	}
	for _, item := range att.swapPairs {
		o.bumpFailedSwap(item.A, item.B)
	}

	if triggeredByDefault || len(seizurePool) > 0 {
		recipients := make([]string, 0, len(att.participants))
		for _, u := range att.participants {
			if !defaulter[u] && att.eligible[u] {
				recipients = append(recipients, u)
			}
		}
		redistributed, err := stake.Redistribute(ctx, o.tokens, seizurePool, recipients, att.grossOut)
		if err != nil {
			return fmt.Errorf("clearing: seizure redistribution: %w", err)
		}
		for _, user := range recipients {
			for _, tok := range sortedKeys(redistributed[user]) {
				amt := redistributed[user][tok]
				if amt.Sign() <= 0 {
					continue
				}
				o.emit(events.StakeRedistributed{CycleID: cycleID, User: user, Token: tok, Amount: amt})
			}
		}
	}
	return nil
}

// bumpDefaulterItems increments failed_cycles for every item touching a
// defaulter in att, ahead of that defaulter's exclusion and the cycle's
// restart. Items not touching a defaulter are left untouched; they remain
// part of the restarted attempt.
func (o *Orchestrator) bumpDefaulterItems(att *attempt) {
	defaulter := make(map[string]bool, len(att.defaulters))
	for _, d := range att.defaulters {
		defaulter[d] = true
	}
	for _, item := range att.dvpPairs {
		if defaulter[item.Buy.Maker] || defaulter[item.Sell.Maker] {
			o.bumpFailedDvP(item.Buy)
			o.bumpFailedDvP(item.Sell)
		}
	}
	for _, p := range att.payments {
		if defaulter[p.Sender] || defaulter[p.Recipient] {
			o.bumpFailedPayment(p)
		}
	}
	for _, item := range att.swapPairs {
		if defaulter[item.A.Maker] || defaulter[item.B.Maker] {
			o.bumpFailedSwap(item.A, item.B)
		}
	}
}

// bumpIneligibleItems increments failed_cycles for every item touching a
// participant Phase 2 marked ineligible for stake shortfall. Those items
// were dropped from Phase 3's obligation calculation and Finalize's
// deactivation, so unlike a defaulter they are never excluded between
// rounds and never reach rollback — without this, a participant who can
// never raise their stake quota would have every item touching them retried
// forever instead of ever hitting the cap.
func (o *Orchestrator) bumpIneligibleItems(att *attempt) {
	ineligible := func(u string) bool { return !att.eligible[u] }
	for _, item := range att.dvpPairs {
		if ineligible(item.Buy.Maker) || ineligible(item.Sell.Maker) {
			o.bumpFailedDvP(item.Buy)
			o.bumpFailedDvP(item.Sell)
		}
	}
	for _, p := range att.payments {
		if ineligible(p.Sender) || ineligible(p.Recipient) {
			o.bumpFailedPayment(p)
		}
	}
	for _, item := range att.swapPairs {
		if ineligible(item.A.Maker) || ineligible(item.B.Maker) {
			o.bumpFailedSwap(item.A, item.B)
		}
	}
}

func (o *Orchestrator) bumpFailedDvP(order *orderbook.DvPOrder) {
	if order == nil || !order.Active {
		return
	}
	order.FailedCycles++
	if order.FailedCycles >= o.cfg.MaxFailedCycles {
		order.Active = false
		order.Locked = false
	}
	_ = o.book.DvPPut(order)
}

func (o *Orchestrator) bumpFailedPayment(p *orderbook.PaymentRequest) {
	if p == nil || !p.Active {
		return
	}
	p.FailedCycles++
	cancel := p.FailedCycles >= o.cfg.MaxFailedCycles
	if cancel {
		p.Active = false
	}
	_ = o.book.PaymentPut(p)
	if cancel {
		o.emit(events.PaymentRequestCancelled{PaymentID: p.ID, Reason: "retry_cap"})
	}
}

func (o *Orchestrator) bumpFailedSwap(a, b *orderbook.SwapOrder) {
	if a == nil || b == nil || !a.Active || !b.Active {
		return
	}
	a.FailedCycles++
	b.FailedCycles++
	if a.FailedCycles >= o.cfg.MaxFailedCycles {
		a.MatchedPeerID = 0
		b.MatchedPeerID = 0
		_ = o.book.SwapPut(a)
		_ = o.book.SwapPut(b)
		o.emit(events.SwapOrderCancelled{SwapID: a.ID, Reason: "retry_cap"})
		o.emit(events.SwapOrderCancelled{SwapID: b.ID, Reason: "retry_cap"})
		return
	}
	_ = o.book.SwapPut(a)
	_ = o.book.SwapPut(b)
}

// settlementDigest derives a deterministic audit hash over the cycle's
// final aggregate net positions, in the teacher's ethcrypto.Keccak256Hash
// style (native/escrow.tradeEngine computing a trade id from its inputs).
// It gives external observers a single value to compare against an
// independently recomputed settlement without replaying every event.
func settlementDigest(cycleID string, att *attempt) [32]byte {
	users := att.netTable.Users()
	parts := make([][]byte, 0, len(users)+1)
	parts = append(parts, []byte(cycleID))
	for _, u := range users {
		agg := att.aggNet[u]
		if agg == nil {
			agg = big.NewInt(0)
		}
		parts = append(parts, []byte(u), []byte(agg.String()))
	}
	return ethcrypto.Keccak256Hash(parts...)
}

func dvpPairsToObligation(items []*dvpItem) []obligation.DvPPair {
	out := make([]obligation.DvPPair, 0, len(items))
	for _, item := range items {
		out = append(out, obligation.DvPPair{
			Buyer:        item.Buy.Maker,
			Seller:       item.Sell.Maker,
			PaymentToken: item.Buy.PaymentToken,
			Price:        item.Buy.Price,
		})
	}
	return out
}

func paymentsToObligation(items []*orderbook.PaymentRequest) []obligation.Payment {
	out := make([]obligation.Payment, 0, len(items))
	for _, p := range items {
		out = append(out, obligation.Payment{
			Sender:    p.Sender,
			Recipient: p.Recipient,
			Token:     p.FulfilledToken,
			Amount:    p.Amount,
		})
	}
	return out
}

func swapPairsToObligation(items []*swapItem) []obligation.SwapPair {
	out := make([]obligation.SwapPair, 0, len(items))
	for _, item := range items {
		out = append(out, obligation.SwapPair{
			MakerA:      item.A.Maker,
			SendTokenA:  item.A.SendToken,
			SendAmountA: item.A.SendAmount,
			MakerB:      item.B.Maker,
			SendTokenB:  item.B.SendToken,
			SendAmountB: item.B.SendAmount,
		})
	}
	return out
}

func mergeCollected(maps ...stake.Collected) stake.Collected {
	out := make(stake.Collected)
	for _, m := range maps {
		for tok, amt := range m {
			if amt == nil || amt.Sign() <= 0 {
				continue
			}
			out[tok] = addBig(out[tok], amt)
		}
	}
	return out
}

func sortedKeys(c stake.Collected) []string {
	out := make([]string, 0, len(c))
	for tok := range c {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func addBig(existing, delta *big.Int) *big.Int {
	if existing == nil {
		existing = big.NewInt(0)
	}
	if delta == nil {
		return existing
	}
	return new(big.Int).Add(existing, delta)
}

// bigToFloat renders an amount for a metrics gauge/counter, where exact
// precision is not required.
func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
