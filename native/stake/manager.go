// Package stake implements the Stake Manager: it computes each
// participant's stake quota from their gross outgoing, collects it from
// their ranked accepted tokens, tracks what was collected, and redistributes
// seized stake on default (spec section 2, component 7, and section 4.4,
// Phases 2, 5, 8).
package stake

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/smith5mc/clearing-sub001/token"
)

// userView resolves a user's ranked accepted-token list, the order the
// manager walks when collecting stake or debiting a residual.
type userView interface {
	AcceptedTokensOf(user string) ([]string, error)
}

// Manager implements the stake collection, application, and refund
// operations; seizure itself is done by the settlement orchestrator. It holds no cycle state itself; callers (the
// settlement orchestrator) own stake_collected and gross_out and pass them
// in explicitly (spec section 9: "gate mutating entry points behind an
// explicit engine handle... do not rely on ambient singletons").
type Manager struct {
	tokens  *token.Registry
	users   userView
	rateBps uint32
}

// NewManager constructs a stake manager. rateBps is the configured
// stake_rate expressed in basis points (default 2000 = 20%).
func NewManager(tokens *token.Registry, users userView, rateBps uint32) *Manager {
	return &Manager{tokens: tokens, users: users, rateBps: rateBps}
}

// Quota computes stake_rate × gross_out for a participant, rounding down.
func (m *Manager) Quota(grossOut *big.Int) *big.Int {
	if grossOut == nil || grossOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	quota := new(big.Int).Mul(grossOut, big.NewInt(int64(m.rateBps)))
	return quota.Div(quota, big.NewInt(10_000))
}

// Collected is the per-token stake a single user has paid in.
type Collected map[string]*big.Int

// Clone returns a deep copy of the per-token stake map, for callers (the
// settlement orchestrator) that need to draw down a working copy while
// preserving the original collection record.
func (c Collected) Clone() Collected { return c.clone() }

// clone returns a deep copy of the per-token stake map.
func (c Collected) clone() Collected {
	out := make(Collected, len(c))
	for tok, amt := range c {
		out[tok] = new(big.Int).Set(amt)
	}
	return out
}

// total sums every token's stake.
func (c Collected) total() *big.Int {
	sum := big.NewInt(0)
	for _, amt := range c {
		sum.Add(sum, amt)
	}
	return sum
}

// Collect attempts to raise quota from user's balance/allowance, walking
// their ranked accepted_tokens list (spec section 4.4, Phase 2). It returns
// the amounts actually drawn per token and whether the full quota was met;
// a partial draw on a false return is left in place for the caller to
// refund (the settlement orchestrator does so at once, in Phase 2) —
// Collect itself never reverses a partial debit.
func (m *Manager) Collect(ctx context.Context, user string, quota *big.Int) (Collected, bool, error) {
	collected := make(Collected)
	if quota == nil || quota.Sign() <= 0 {
		return collected, true, nil
	}
	tokens, err := m.users.AcceptedTokensOf(user)
	if err != nil {
		return collected, false, err
	}
	remaining := new(big.Int).Set(quota)
	for _, tok := range tokens {
		if remaining.Sign() <= 0 {
			break
		}
		fungible, err := m.tokens.Fungible(tok)
		if err != nil {
			continue
		}
		draw, err := m.drawable(ctx, fungible, user, remaining)
		if err != nil {
			return collected, false, err
		}
		if draw.Sign() <= 0 {
			continue
		}
		if err := fungible.TransferFrom(ctx, user, draw); err != nil {
			return collected, false, err
		}
		collected[tok] = draw
		remaining.Sub(remaining, draw)
	}
	return collected, remaining.Sign() <= 0, nil
}

func (m *Manager) drawable(ctx context.Context, f token.Fungible, user string, ceiling *big.Int) (*big.Int, error) {
	balance, err := f.BalanceOf(ctx, user)
	if err != nil {
		return nil, err
	}
	allowance, err := f.AllowanceOf(ctx, user)
	if err != nil {
		return nil, err
	}
	draw := new(big.Int).Set(ceiling)
	if balance.Cmp(draw) < 0 {
		draw = new(big.Int).Set(balance)
	}
	if allowance.Cmp(draw) < 0 {
		draw = new(big.Int).Set(allowance)
	}
	if draw.Sign() < 0 {
		draw = big.NewInt(0)
	}
	return draw, nil
}

// ApplyToObligation moves up to owed out of a user's already-collected
// stake toward their pay-in requirement (spec section 4.4, Phase 5, step
// 2). Both the returned applied map and stakeCollected are expressed in the
// same units; stakeCollected is mutated to reflect what remains. The
// movement is pure bookkeeping — the tokens are already inside engine
// custody from Collect, so no adapter call is made here.
func (m *Manager) ApplyToObligation(user string, stakeCollected Collected, owed *big.Int) (applied Collected, remaining *big.Int) {
	applied = make(Collected)
	remaining = new(big.Int).Set(owed)
	if remaining.Sign() <= 0 {
		return applied, big.NewInt(0)
	}
	tokens, err := m.users.AcceptedTokensOf(user)
	if err != nil {
		tokens = sortedTokenKeys(stakeCollected)
	}
	for _, tok := range tokens {
		if remaining.Sign() <= 0 {
			break
		}
		avail, ok := stakeCollected[tok]
		if !ok || avail.Sign() <= 0 {
			continue
		}
		draw := new(big.Int).Set(remaining)
		if avail.Cmp(draw) < 0 {
			draw = new(big.Int).Set(avail)
		}
		applied[tok] = draw
		stakeCollected[tok] = new(big.Int).Sub(avail, draw)
		remaining.Sub(remaining, draw)
	}
	return applied, remaining
}

// DebitResidual draws residual directly from user's wallet, walking their
// ranked accepted_tokens list (spec section 4.4, Phase 5, step 3).
func (m *Manager) DebitResidual(ctx context.Context, user string, residual *big.Int) (Collected, *big.Int, error) {
	paid := make(Collected)
	remaining := new(big.Int).Set(residual)
	if remaining.Sign() <= 0 {
		return paid, big.NewInt(0), nil
	}
	tokens, err := m.users.AcceptedTokensOf(user)
	if err != nil {
		return paid, remaining, err
	}
	for _, tok := range tokens {
		if remaining.Sign() <= 0 {
			break
		}
		fungible, err := m.tokens.Fungible(tok)
		if err != nil {
			continue
		}
		draw, err := m.drawable(ctx, fungible, user, remaining)
		if err != nil {
			return paid, remaining, err
		}
		if draw.Sign() <= 0 {
			continue
		}
		if err := fungible.TransferFrom(ctx, user, draw); err != nil {
			return paid, remaining, err
		}
		paid[tok] = draw
		remaining.Sub(remaining, draw)
	}
	return paid, remaining, nil
}

// Refund credits every token in amounts back to user (spec section 4.4,
// Phase 8 and Rollback: "Return every debited token... to its
// contributor").
func (m *Manager) Refund(ctx context.Context, user string, amounts Collected) error {
	for _, tok := range sortedTokenKeys(amounts) {
		amt := amounts[tok]
		if amt == nil || amt.Sign() <= 0 {
			continue
		}
		fungible, err := m.tokens.Fungible(tok)
		if err != nil {
			return err
		}
		if err := fungible.Transfer(ctx, user, amt); err != nil {
			return err
		}
	}
	return nil
}

// Redistribute splits pool pro rata across recipients by their grossOut,
// draining every token exactly (spec section 4.4, Rollback: "redistribute
// the seizure pool to eligible non-defaulting participants pro rata to
// their gross_out"). Recipients are processed in ascending order; any
// remainder from integer division is assigned to the last recipient in
// that order so no residue persists in the pool, satisfying the pool-drain
// invariant (spec section 5).
func Redistribute(ctx context.Context, tokens *token.Registry, pool map[string]*big.Int, recipients []string, grossOut map[string]*big.Int) (map[string]Collected, error) {
	result := make(map[string]Collected, len(recipients))
	for _, r := range recipients {
		result[r] = make(Collected)
	}
	sortedRecipients := append([]string(nil), recipients...)
	sort.Strings(sortedRecipients)

	totalGross := big.NewInt(0)
	for _, r := range sortedRecipients {
		if g, ok := grossOut[r]; ok && g != nil {
			totalGross.Add(totalGross, g)
		}
	}
	if totalGross.Sign() <= 0 || len(sortedRecipients) == 0 {
		return result, nil
	}

	for _, tok := range sortedTokenKeysBig(pool) {
		amount := pool[tok]
		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		distributed := big.NewInt(0)
		for i, r := range sortedRecipients {
			if i == len(sortedRecipients)-1 {
				share := new(big.Int).Sub(amount, distributed)
				if share.Sign() > 0 {
					result[r][tok] = addBig(result[r][tok], share)
				}
				break
			}
			gross := grossOut[r]
			if gross == nil {
				gross = big.NewInt(0)
			}
			share := new(big.Int).Mul(amount, gross)
			share.Div(share, totalGross)
			if share.Sign() > 0 {
				result[r][tok] = addBig(result[r][tok], share)
				distributed.Add(distributed, share)
			}
		}
	}

	for _, r := range recipients {
		for tok, amt := range result[r] {
			if amt.Sign() <= 0 {
				continue
			}
			fungible, err := tokens.Fungible(tok)
			if err != nil {
				return result, fmt.Errorf("stake: redistribute: %w", err)
			}
			if err := fungible.Transfer(ctx, r, amt); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func addBig(existing, delta *big.Int) *big.Int {
	if existing == nil {
		existing = big.NewInt(0)
	}
	return new(big.Int).Add(existing, delta)
}

func sortedTokenKeys(c Collected) []string {
	out := make([]string, 0, len(c))
	for tok := range c {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func sortedTokenKeysBig(m map[string]*big.Int) []string {
	out := make([]string, 0, len(m))
	for tok := range m {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
