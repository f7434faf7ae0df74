// Package settlement implements the Settlement Orchestrator: the cycle
// state machine that drives matching results through stake collection,
// obligation computation, cross-stablecoin aggregation, locking,
// disbursement, default handling, and atomic finalization or rollback
// (spec section 4.4).
package settlement

// CycleState is the orchestrator's explicit, one-way-transition phase
// (spec section 9, "State machine"). External entry points other than the
// view API must not be invoked while state != Idle.
type CycleState uint8

const (
	Idle CycleState = iota
	CollectParticipants
	CollectStake
	ComputeObligations
	Aggregate
	LockNet
	LockAssets
	Disburse
	Finalize
	RollbackState
)

func (s CycleState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case CollectParticipants:
		return "CollectParticipants"
	case CollectStake:
		return "CollectStake"
	case ComputeObligations:
		return "ComputeObligations"
	case Aggregate:
		return "Aggregate"
	case LockNet:
		return "LockNet"
	case LockAssets:
		return "LockAssets"
	case Disburse:
		return "Disburse"
	case Finalize:
		return "Finalize"
	case RollbackState:
		return "Rollback"
	default:
		return "Unknown"
	}
}

// Config holds the cycle-level configuration constants read at engine
// initialization (spec section 6, "Configuration constants").
type Config struct {
	CycleIntervalSeconds int64
	StakeRateBps         uint32
	MaxFailedCycles      uint32
}
