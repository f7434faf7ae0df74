// Package memory provides an in-memory reference implementation of the
// token.Fungible and token.NonFungible interfaces, used by tests and the
// demo cmd/clearingd binary. Production deployments wire real ledgers
// (on-chain token contracts, a bank ledger, ...) behind the same
// interfaces; persistence of those ledgers is explicitly out of scope for
// this engine (spec section 1).
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Ledger is a simple balance/allowance ledger for one fungible token.
type Ledger struct {
	mu         sync.Mutex
	balances   map[string]*big.Int
	allowances map[string]*big.Int
	custody    *big.Int
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
		custody:    big.NewInt(0),
	}
}

// Fund credits owner's balance directly, for test/demo setup.
func (l *Ledger) Fund(owner string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] = addNonNil(l.balances[owner], amount)
}

// Approve sets the amount the engine may debit from owner.
func (l *Ledger) Approve(owner string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[owner] = new(big.Int).Set(amount)
}

// CustodyBalance returns the amount currently held by the engine. A
// non-zero value outside a settlement cycle indicates a pool-drain
// invariant violation upstream.
func (l *Ledger) CustodyBalance() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.custody)
}

func (l *Ledger) PoolBalance(_ context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.custody), nil
}

func (l *Ledger) BalanceOf(_ context.Context, owner string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(zeroIfNil(l.balances[owner])), nil
}

func (l *Ledger) AllowanceOf(_ context.Context, owner string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(zeroIfNil(l.allowances[owner])), nil
}

func (l *Ledger) TransferFrom(_ context.Context, owner string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("memory ledger: transfer amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := zeroIfNil(l.balances[owner])
	allow := zeroIfNil(l.allowances[owner])
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("memory ledger: %s insufficient balance", owner)
	}
	if allow.Cmp(amount) < 0 {
		return fmt.Errorf("memory ledger: %s insufficient allowance", owner)
	}
	l.balances[owner] = new(big.Int).Sub(bal, amount)
	l.allowances[owner] = new(big.Int).Sub(allow, amount)
	l.custody = new(big.Int).Add(l.custody, amount)
	return nil
}

func (l *Ledger) Transfer(_ context.Context, receiver string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("memory ledger: transfer amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.custody.Cmp(amount) < 0 {
		return fmt.Errorf("memory ledger: custody pool underfunded")
	}
	l.custody = new(big.Int).Sub(l.custody, amount)
	l.balances[receiver] = addNonNil(l.balances[receiver], amount)
	return nil
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func addNonNil(existing, amount *big.Int) *big.Int {
	base := zeroIfNil(existing)
	return new(big.Int).Add(base, amount)
}
