package events

import "github.com/smith5mc/clearing-sub001/core/types"

// Event type identifiers, one per lifecycle event named in the external
// interfaces of the settlement engine.
const (
	TypeUserConfigured           = "registry.user_configured"
	TypeOrderPlaced               = "orderbook.order_placed"
	TypeOrderMatched               = "matcher.order_matched"
	TypePaymentRequestCreated     = "orderbook.payment_request_created"
	TypePaymentRequestFulfilled   = "orderbook.payment_request_fulfilled"
	TypePaymentRequestCancelled   = "orderbook.payment_request_cancelled"
	TypeSwapOrderSubmitted        = "orderbook.swap_order_submitted"
	TypeSwapOrderMatched          = "matcher.swap_order_matched"
	TypeSwapOrderCancelled        = "orderbook.swap_order_cancelled"
	TypeStakeCollected             = "stake.collected"
	TypeStakeSeized                = "stake.seized"
	TypeStakeRedistributed        = "stake.redistributed"
	TypeStakeRefunded              = "stake.refunded"
	TypeCrossStablecoinNetted     = "netting.cross_stablecoin_netted"
	TypeSettlementCompleted        = "settlement.completed"
	TypeSettlementFailed           = "settlement.failed"
	TypeParticipantDefaulted      = "settlement.participant_defaulted"
)

// UserConfigured is emitted whenever a participant's ranked accepted-token
// list is replaced via configure_user (or add_token/remove_token/set_rank).
type UserConfigured struct {
	User           string
	AcceptedTokens []string
}

func (UserConfigured) EventType() string { return TypeUserConfigured }

func (e UserConfigured) Event() *types.Event {
	return &types.Event{Type: TypeUserConfigured, Attributes: map[string]string{
		"user":           e.User,
		"acceptedTokens": joinTokens(e.AcceptedTokens),
	}}
}
