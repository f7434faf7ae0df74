package orderbook

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/core/events"
	nativecommon "github.com/smith5mc/clearing-sub001/native/common"
)

const moduleName = "orderbook"

// userView is the narrow slice of the User Registry the order book needs:
// membership checks for TokenNotAccepted validation at fulfillment/match
// submission time.
type userView interface {
	AcceptsToken(user, token string) bool
}

// state is the narrow persistence surface Engine requires.
type state interface {
	NextDvPID() uint64
	DvPPut(*DvPOrder) error
	DvPGet(id uint64) (*DvPOrder, bool)
	DvPAll() []*DvPOrder
	DvPActiveBuys() []*DvPOrder
	DvPActiveSellsFor(counterparty, assetID string, serial uint64) []*DvPOrder

	NextPaymentID() uint64
	PaymentPut(*PaymentRequest) error
	PaymentGet(id uint64) (*PaymentRequest, bool)
	PaymentAll() []*PaymentRequest

	NextSwapID() uint64
	SwapPut(*SwapOrder) error
	SwapGet(id uint64) (*SwapOrder, bool)
	SwapAll() []*SwapOrder
	SwapActiveUnmatched() []*SwapOrder
}

// Engine implements the Order Book component's submission and cancellation
// operations (spec section 4.2). Matching itself lives in a separate
// Matcher that reads and writes the same state through this package's
// exported store.
type Engine struct {
	state       state
	users       userView
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	amountScale *big.Int
}

// NewEngine constructs an order book engine. users validates accepted-token
// membership for payment fulfillment.
func NewEngine(users userView) *Engine {
	return &Engine{users: users, emitter: events.NoopEmitter{}}
}

// SetAmountScale bounds the magnitude of any single submitted amount
// (config.Config.AmountScale); a nil or non-positive scale disables the
// check. Exceeding it is rejected as ErrInvalidAmount alongside the other
// sanitization failures, not a separate error class.
func (e *Engine) SetAmountScale(scale *big.Int) { e.amountScale = scale }

func (e *Engine) checkScale(amounts ...*big.Int) error {
	for _, a := range amounts {
		if a == nil {
			continue
		}
		if _, overflow := uint256.FromBig(a); overflow {
			return fmt.Errorf("%w: amount does not fit in an unsigned 256-bit value", clearingerrors.ErrInvalidAmount)
		}
	}
	if e.amountScale == nil || e.amountScale.Sign() <= 0 {
		return nil
	}
	for _, a := range amounts {
		if a == nil {
			continue
		}
		if new(big.Int).Abs(a).Cmp(e.amountScale) > 0 {
			return fmt.Errorf("%w: amount exceeds configured scale", clearingerrors.ErrInvalidAmount)
		}
	}
	return nil
}

// SetState configures the state backend.
func (e *Engine) SetState(s state) { e.state = s }

// SetEmitter configures the event emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

// SubmitDvPBuy places a buy order committing to pay price in paymentToken
// for the asset held by counterparty.
func (e *Engine) SubmitDvPBuy(maker, assetID string, serial uint64, paymentToken string, price *big.Int, counterparty string) (*DvPOrder, error) {
	if e.state == nil {
		return nil, fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	if err := e.checkScale(price); err != nil {
		return nil, err
	}
	order := &DvPOrder{
		Maker:        maker,
		Side:         SideBuy,
		AssetID:      assetID,
		TokenSerial:  serial,
		PaymentToken: paymentToken,
		Price:        price,
		Counterparty: counterparty,
		Active:       true,
	}
	sanitized, err := SanitizeDvPOrder(order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clearingerrors.ErrInvalidAmount, err)
	}
	sanitized.ID = e.state.NextDvPID()
	if err := e.state.DvPPut(sanitized); err != nil {
		return nil, err
	}
	e.emit(events.OrderPlaced{
		OrderID:      sanitized.ID,
		Kind:         events.OrderKindDvPBuy,
		Maker:        sanitized.Maker,
		AssetID:      sanitized.AssetID,
		TokenSerial:  sanitized.TokenSerial,
		PaymentToken: sanitized.PaymentToken,
		Price:        sanitized.Price,
		Counterparty: sanitized.Counterparty,
	})
	return sanitized.Clone(), nil
}

// SubmitDvPSell places a sell order offering the asset against one or more
// (token, price) quotes.
func (e *Engine) SubmitDvPSell(maker, assetID string, serial uint64, quotes []PriceQuote, counterparty string) (*DvPOrder, error) {
	if e.state == nil {
		return nil, fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	for _, q := range quotes {
		if err := e.checkScale(q.Price); err != nil {
			return nil, err
		}
	}
	order := &DvPOrder{
		Maker:        maker,
		Side:         SideSell,
		AssetID:      assetID,
		TokenSerial:  serial,
		Quotes:       quotes,
		Counterparty: counterparty,
		Active:       true,
	}
	sanitized, err := SanitizeDvPOrder(order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clearingerrors.ErrInvalidAmount, err)
	}
	sanitized.ID = e.state.NextDvPID()
	if err := e.state.DvPPut(sanitized); err != nil {
		return nil, err
	}
	var quote *big.Int
	var token string
	if len(sanitized.Quotes) > 0 {
		token, quote = sanitized.Quotes[0].Token, sanitized.Quotes[0].Price
	}
	e.emit(events.OrderPlaced{
		OrderID:      sanitized.ID,
		Kind:         events.OrderKindDvPSell,
		Maker:        sanitized.Maker,
		AssetID:      sanitized.AssetID,
		TokenSerial:  sanitized.TokenSerial,
		PaymentToken: token,
		Price:        quote,
		Counterparty: sanitized.Counterparty,
	})
	return sanitized.Clone(), nil
}

// CreatePaymentRequest registers a directed payment request.
func (e *Engine) CreatePaymentRequest(recipient, senderOrAny string, amount *big.Int) (*PaymentRequest, error) {
	if e.state == nil {
		return nil, fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	if err := e.checkScale(amount); err != nil {
		return nil, err
	}
	req := &PaymentRequest{Recipient: recipient, Sender: senderOrAny, Amount: amount, Active: true}
	sanitized, err := SanitizePaymentRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clearingerrors.ErrInvalidAmount, err)
	}
	sanitized.ID = e.state.NextPaymentID()
	if err := e.state.PaymentPut(sanitized); err != nil {
		return nil, err
	}
	e.emit(events.PaymentRequestCreated{
		PaymentID: sanitized.ID,
		Recipient: sanitized.Recipient,
		Sender:    sanitized.Sender,
		Amount:    sanitized.Amount,
	})
	return sanitized.Clone(), nil
}

// FulfillPaymentRequest commits chosenToken as the instrument sender will
// pay with. Rejected with TokenNotAccepted if chosenToken is outside the
// recipient's accepted list.
func (e *Engine) FulfillPaymentRequest(paymentID uint64, sender, chosenToken string) (*PaymentRequest, error) {
	if e.state == nil {
		return nil, fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	req, ok := e.state.PaymentGet(paymentID)
	if !ok {
		return nil, clearingerrors.ErrUnknownID
	}
	if !req.Active {
		return nil, clearingerrors.ErrInactive
	}
	if req.Fulfilled {
		return nil, clearingerrors.ErrAlreadySettled
	}
	if !req.IsOpenTo(sender) {
		return nil, fmt.Errorf("%w: sender not permitted on this request", clearingerrors.ErrNotOwner)
	}
	if e.users != nil && !e.users.AcceptsToken(req.Recipient, chosenToken) {
		return nil, clearingerrors.ErrTokenNotAccepted
	}
	req.Fulfilled = true
	req.FulfilledToken = chosenToken
	req.Sender = sender
	sanitized, err := SanitizePaymentRequest(req)
	if err != nil {
		return nil, err
	}
	if err := e.state.PaymentPut(sanitized); err != nil {
		return nil, err
	}
	e.emit(events.PaymentRequestFulfilled{
		PaymentID:      sanitized.ID,
		Sender:         sender,
		FulfilledToken: sanitized.FulfilledToken,
	})
	return sanitized.Clone(), nil
}

// SubmitSwapOrder registers a swap order. Matching is triggered separately
// by the caller via the Matcher (spec section 4.2: "immediately triggers a
// matching attempt" — the orchestration of that call lives in the engine
// facade so this package stays free of a dependency on the matcher).
func (e *Engine) SubmitSwapOrder(maker string, sendAmount *big.Int, sendToken string, receiveAmount *big.Int) (*SwapOrder, error) {
	if e.state == nil {
		return nil, fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	if err := e.checkScale(sendAmount, receiveAmount); err != nil {
		return nil, err
	}
	order := &SwapOrder{Maker: maker, SendAmount: sendAmount, SendToken: sendToken, ReceiveAmount: receiveAmount, Active: true}
	sanitized, err := SanitizeSwapOrder(order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clearingerrors.ErrInvalidAmount, err)
	}
	sanitized.ID = e.state.NextSwapID()
	if err := e.state.SwapPut(sanitized); err != nil {
		return nil, err
	}
	e.emit(events.SwapOrderSubmitted{
		SwapID:        sanitized.ID,
		Maker:         sanitized.Maker,
		SendAmount:    sanitized.SendAmount,
		SendToken:     sanitized.SendToken,
		ReceiveAmount: sanitized.ReceiveAmount,
	})
	return sanitized.Clone(), nil
}

// CancelDvPOrder cancels an active, unmatched DvP order. Only the maker may
// cancel.
func (e *Engine) CancelDvPOrder(id uint64, caller string) error {
	if e.state == nil {
		return fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return err
	}
	o, ok := e.state.DvPGet(id)
	if !ok {
		return clearingerrors.ErrUnknownID
	}
	if o.Maker != caller {
		return clearingerrors.ErrNotOwner
	}
	if !o.Active {
		return clearingerrors.ErrInactive
	}
	if o.Matched() {
		return clearingerrors.ErrAlreadyMatched
	}
	o.Active = false
	return e.state.DvPPut(o)
}

// CancelPaymentRequest cancels a payment request while unfulfilled. The
// maker (recipient) may cancel.
func (e *Engine) CancelPaymentRequest(id uint64, caller string) error {
	if e.state == nil {
		return fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return err
	}
	p, ok := e.state.PaymentGet(id)
	if !ok {
		return clearingerrors.ErrUnknownID
	}
	if p.Recipient != caller {
		return clearingerrors.ErrNotOwner
	}
	if !p.Active {
		return clearingerrors.ErrInactive
	}
	if p.Fulfilled {
		return clearingerrors.ErrAlreadySettled
	}
	p.Active = false
	if err := e.state.PaymentPut(p); err != nil {
		return err
	}
	e.emit(events.PaymentRequestCancelled{PaymentID: p.ID})
	return nil
}

// CancelSwapOrder cancels an active, unmatched swap order. Only the maker
// may cancel.
func (e *Engine) CancelSwapOrder(id uint64, caller string) error {
	if e.state == nil {
		return fmt.Errorf("orderbook: state not configured")
	}
	if err := e.guard(); err != nil {
		return err
	}
	o, ok := e.state.SwapGet(id)
	if !ok {
		return clearingerrors.ErrUnknownID
	}
	if o.Maker != caller {
		return clearingerrors.ErrNotOwner
	}
	if !o.Active {
		return clearingerrors.ErrInactive
	}
	if o.Matched() {
		return clearingerrors.ErrAlreadyMatched
	}
	o.Active = false
	if err := e.state.SwapPut(o); err != nil {
		return err
	}
	e.emit(events.SwapOrderCancelled{SwapID: o.ID})
	return nil
}
