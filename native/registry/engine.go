package registry

import (
	"fmt"
	"sort"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
	"github.com/smith5mc/clearing-sub001/core/events"
)

// tokenKnower reports whether a token identifier names a registered
// adapter. token.Registry satisfies this.
type tokenKnower interface {
	Contains(tokenID string) bool
}

// registryState is the narrow persistence surface the engine requires,
// in the teacher's Engine + state-interface style (see
// native/escrow.tradeEngineState in the teacher repo).
type registryState interface {
	UserPut(*User) error
	UserGet(id string) (*User, bool)
}

// Engine implements the User Registry component (spec section 4.1).
type Engine struct {
	state   registryState
	tokens  tokenKnower
	emitter events.Emitter
}

// NewEngine constructs a registry engine bound to tokens, the authority used
// to validate that accepted-token entries reference known adapters.
func NewEngine(tokens tokenKnower) *Engine {
	return &Engine{tokens: tokens, emitter: events.NoopEmitter{}}
}

// SetState configures the state backend.
func (e *Engine) SetState(state registryState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) knownToken(t string) bool {
	if e.tokens == nil {
		return true
	}
	return e.tokens.Contains(t)
}

func (e *Engine) validateKnownTokens(tokens []string) error {
	for _, t := range tokens {
		if !e.knownToken(t) {
			return fmt.Errorf("%w: unknown token %q", clearingerrors.ErrInvalidConfig, t)
		}
	}
	return nil
}

// Configure replaces a user's ranked accepted-token list atomically.
func (e *Engine) Configure(user string, tokens []string) (*User, error) {
	if e.state == nil {
		return nil, fmt.Errorf("registry: state not configured")
	}
	candidate := &User{ID: user, AcceptedTokens: tokens, Configured: true}
	sanitized, err := SanitizeUser(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clearingerrors.ErrInvalidConfig, err)
	}
	if err := e.validateKnownTokens(sanitized.AcceptedTokens); err != nil {
		return nil, err
	}
	if err := e.state.UserPut(sanitized); err != nil {
		return nil, err
	}
	e.emit(events.UserConfigured{User: sanitized.ID, AcceptedTokens: sanitized.AcceptedTokens})
	return sanitized.Clone(), nil
}

// AddToken appends t to the user's accepted list if not already present.
func (e *Engine) AddToken(user, t string) (*User, error) {
	existing, err := e.load(user)
	if err != nil {
		return nil, err
	}
	if existing.AcceptsToken(t) {
		return existing.Clone(), nil
	}
	return e.Configure(user, append(existing.AcceptedTokens, t))
}

// RemoveToken removes t from the user's accepted list. The list must remain
// non-empty afterward.
func (e *Engine) RemoveToken(user, t string) (*User, error) {
	existing, err := e.load(user)
	if err != nil {
		return nil, err
	}
	norm := normalizeToken(t)
	remaining := make([]string, 0, len(existing.AcceptedTokens))
	for _, tok := range existing.AcceptedTokens {
		if tok == norm {
			continue
		}
		remaining = append(remaining, tok)
	}
	if len(remaining) == len(existing.AcceptedTokens) {
		return existing.Clone(), nil
	}
	return e.Configure(user, remaining)
}

// SetRank replaces the ranked order of the user's accepted tokens. The new
// order must be a permutation containing exactly the tokens already
// accepted; use Configure to change membership.
func (e *Engine) SetRank(user string, tokens []string) (*User, error) {
	existing, err := e.load(user)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeTokenList(tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clearingerrors.ErrInvalidConfig, err)
	}
	current := append([]string(nil), existing.AcceptedTokens...)
	sort.Strings(current)
	wanted := append([]string(nil), normalized...)
	sort.Strings(wanted)
	if len(current) != len(wanted) {
		return nil, fmt.Errorf("%w: set_rank must preserve membership", clearingerrors.ErrInvalidConfig)
	}
	for i := range current {
		if current[i] != wanted[i] {
			return nil, fmt.Errorf("%w: set_rank must preserve membership", clearingerrors.ErrInvalidConfig)
		}
	}
	return e.Configure(user, normalized)
}

// Get returns a snapshot view of the user's configuration.
func (e *Engine) Get(user string) (*User, error) {
	return e.load(user)
}

// AcceptedTokensOf returns user's ranked accepted-token list, satisfying the
// narrow userView interfaces consumed by the stake manager and settlement
// orchestrator.
func (e *Engine) AcceptedTokensOf(user string) ([]string, error) {
	u, err := e.load(user)
	if err != nil {
		return nil, err
	}
	return u.AcceptedTokens, nil
}

// AcceptsToken reports whether user's accepted list contains token,
// satisfying the narrow userView interfaces consumed by the order book and
// matcher.
func (e *Engine) AcceptsToken(user, token string) bool {
	u, err := e.load(user)
	if err != nil {
		return false
	}
	return u.AcceptsToken(token)
}

func (e *Engine) load(user string) (*User, error) {
	if e.state == nil {
		return nil, fmt.Errorf("registry: state not configured")
	}
	u, ok := e.state.UserGet(user)
	if !ok {
		return nil, clearingerrors.ErrUnknownID
	}
	return SanitizeUser(u)
}
