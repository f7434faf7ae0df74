// Package netting aggregates per-token signed deltas into a single signed
// net position per user (spec section 4.4, Phase 4) and checks the
// sum-to-zero conservation invariant.
package netting

import (
	"math/big"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/native/obligation"
)

// Aggregate computes agg_net[u] = Σ_t net[u][t] for every user in table.
func Aggregate(table obligation.NetTable) map[string]*big.Int {
	agg := make(map[string]*big.Int, len(table))
	for _, user := range table.Users() {
		sum := big.NewInt(0)
		for _, token := range table.Tokens(user) {
			sum.Add(sum, table.Get(user, token))
		}
		agg[user] = sum
	}
	return agg
}

// CheckConservation verifies Σ_u agg_net[u] = 0, the invariant the
// specification requires the orchestrator to enforce after aggregation
// (spec section 4.4, Phase 4: "If violated, abort the cycle (engine bug)").
func CheckConservation(agg map[string]*big.Int) error {
	sum := big.NewInt(0)
	for _, v := range agg {
		sum.Add(sum, v)
	}
	if sum.Sign() != 0 {
		return clearingerrors.ErrInternalInvariantViolation
	}
	return nil
}

// CheckPerTokenConservation verifies Σ_u net[u][t] = 0 for every token t,
// the per-token half of the same conservation invariant (spec section 3,
// Invariants).
func CheckPerTokenConservation(table obligation.NetTable) error {
	totals := make(map[string]*big.Int)
	for _, user := range table.Users() {
		for _, token := range table.Tokens(user) {
			current, ok := totals[token]
			if !ok {
				current = big.NewInt(0)
			}
			totals[token] = new(big.Int).Add(current, table.Get(user, token))
		}
	}
	for _, total := range totals {
		if total.Sign() != 0 {
			return clearingerrors.ErrInternalInvariantViolation
		}
	}
	return nil
}
