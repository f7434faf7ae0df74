package events

import (
	"fmt"
	"math/big"

	"github.com/smith5mc/clearing-sub001/core/types"
)

// CrossStablecoinNetted is emitted once per (user, token) disbursement or
// pay-in leg during netting, giving external observers a token-level trail
// even though the economic obligation is tracked in aggregate.
type CrossStablecoinNetted struct {
	CycleID   string
	User      string
	Aggregate *big.Int
	Token     string
	Amount    *big.Int
}

func (CrossStablecoinNetted) EventType() string { return TypeCrossStablecoinNetted }

func (e CrossStablecoinNetted) Event() *types.Event {
	return &types.Event{Type: TypeCrossStablecoinNetted, Attributes: map[string]string{
		"cycleId":   e.CycleID,
		"user":      e.User,
		"aggregate": amountString(e.Aggregate),
		"token":     e.Token,
		"amount":    amountString(e.Amount),
	}}
}

// SettlementCompleted marks the successful Finalize of a cycle. Digest is a
// deterministic audit hash over the cycle's final aggregate net positions,
// letting an external observer compare against an independently
// recomputed settlement without replaying every event.
type SettlementCompleted struct {
	CycleID   string
	Timestamp int64
	Digest    [32]byte
}

func (SettlementCompleted) EventType() string { return TypeSettlementCompleted }

func (e SettlementCompleted) Event() *types.Event {
	return &types.Event{Type: TypeSettlementCompleted, Attributes: map[string]string{
		"cycleId":   e.CycleID,
		"timestamp": intString(e.Timestamp),
		"digest":    fmt.Sprintf("0x%x", e.Digest),
	}}
}

// SettlementFailed marks a cycle that did not complete, with the reason
// (a second default, a lock-assets or disbursement failure followed by
// Rollback, or an error in Phases 1-5 such as an internal invariant
// violation).
type SettlementFailed struct {
	CycleID string
	Reason  string
}

func (SettlementFailed) EventType() string { return TypeSettlementFailed }

func (e SettlementFailed) Event() *types.Event {
	return &types.Event{Type: TypeSettlementFailed, Attributes: map[string]string{
		"cycleId": e.CycleID,
		"reason":  e.Reason,
	}}
}

// ParticipantDefaulted is emitted once per participant added to the
// defaulters set during Phase 5.
type ParticipantDefaulted struct {
	CycleID string
	User    string
}

func (ParticipantDefaulted) EventType() string { return TypeParticipantDefaulted }

func (e ParticipantDefaulted) Event() *types.Event {
	return &types.Event{Type: TypeParticipantDefaulted, Attributes: map[string]string{
		"cycleId": e.CycleID,
		"user":    e.User,
	}}
}
