package events

import (
	"math/big"

	"github.com/smith5mc/clearing-sub001/core/types"
)

// StakeCollected is emitted each time a slice of a participant's stake
// quota is drawn from a single token during Phase 2.
type StakeCollected struct {
	CycleID string
	User    string
	Token   string
	Amount  *big.Int
}

func (StakeCollected) EventType() string { return TypeStakeCollected }

func (e StakeCollected) Event() *types.Event {
	return &types.Event{Type: TypeStakeCollected, Attributes: map[string]string{
		"cycleId": e.CycleID,
		"user":    e.User,
		"token":   e.Token,
		"amount":  amountString(e.Amount),
	}}
}

// StakeSeized is emitted per token for each defaulting participant when
// their collected stake, and any residual pay-in already drawn from them,
// is moved into the seizure pool.
type StakeSeized struct {
	CycleID string
	User    string
	Token   string
	Amount  *big.Int
}

func (StakeSeized) EventType() string { return TypeStakeSeized }

func (e StakeSeized) Event() *types.Event {
	return &types.Event{Type: TypeStakeSeized, Attributes: map[string]string{
		"cycleId": e.CycleID,
		"user":    e.User,
		"token":   e.Token,
		"amount":  amountString(e.Amount),
	}}
}

// StakeRedistributed is emitted per token for each recipient when the
// seizure pool is distributed pro rata to gross_out: to the eligible
// non-defaulting participants of a default-triggered rollback, or to the
// eligible participants of a restarted attempt that completes.
type StakeRedistributed struct {
	CycleID string
	User    string
	Token   string
	Amount  *big.Int
}

func (StakeRedistributed) EventType() string { return TypeStakeRedistributed }

func (e StakeRedistributed) Event() *types.Event {
	return &types.Event{Type: TypeStakeRedistributed, Attributes: map[string]string{
		"cycleId": e.CycleID,
		"user":    e.User,
		"token":   e.Token,
		"amount":  amountString(e.Amount),
	}}
}

// StakeRefunded is emitted once per token when stake is returned to a
// non-defaulting participant: residual stake at Phase 8, or in full (with
// any residual pay-in) on a Phase 2 shortfall, ahead of a restart, or at
// Rollback.
type StakeRefunded struct {
	CycleID string
	User    string
	Token   string
	Amount  *big.Int
}

func (StakeRefunded) EventType() string { return TypeStakeRefunded }

func (e StakeRefunded) Event() *types.Event {
	return &types.Event{Type: TypeStakeRefunded, Attributes: map[string]string{
		"cycleId": e.CycleID,
		"user":    e.User,
		"token":   e.Token,
		"amount":  amountString(e.Amount),
	}}
}
