// Package token defines the minimal external-collaborator interface the
// settlement engine uses to move value: a uniform view over fungible
// "stablecoin" ledgers and non-fungible asset ledgers (spec section 2.1).
// Asset authenticity, peg risk and transaction authentication are the
// adapter implementation's concern, not the engine's (spec section 1).
package token

import (
	"context"
	"math/big"
)

// Kind distinguishes the two adapter variants. The set is closed and known
// at compile time (spec Design Notes: "prefer a tagged sum type over open
// polymorphism"), so callers switch on Kind rather than relying on type
// assertions against an open interface.
type Kind uint8

const (
	KindUnspecified Kind = iota
	KindFungible
	KindNonFungible
)

// Fungible is implemented by external ledgers for stablecoins. Every
// payment instrument the engine nets is accessed exclusively through this
// interface; the engine never inspects a ledger's internal representation.
type Fungible interface {
	// BalanceOf returns the owner's spendable balance.
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
	// AllowanceOf returns the amount the engine is authorized to debit
	// from owner without a further approval step.
	AllowanceOf(ctx context.Context, owner string) (*big.Int, error)
	// TransferFrom debits owner and credits the engine's custody pool.
	TransferFrom(ctx context.Context, owner string, amount *big.Int) error
	// Transfer credits receiver from the engine's custody pool.
	Transfer(ctx context.Context, receiver string, amount *big.Int) error
	// PoolBalance returns the amount currently held in the engine's
	// custody pool for this token, consulted by disbursement to decide
	// how much of a user's net-positive obligation a given token can
	// cover before falling back to the next ranked token.
	PoolBalance(ctx context.Context) (*big.Int, error)
}

// NonFungible is implemented by external ledgers for unique DvP assets,
// addressed by (assetID, serial) per spec section 3 ("DvP Order").
type NonFungible interface {
	// OwnerOf returns the current holder of the asset.
	OwnerOf(ctx context.Context, assetID string, serial uint64) (string, error)
	// AssetTransferFrom moves the asset from owner into engine custody.
	AssetTransferFrom(ctx context.Context, owner, assetID string, serial uint64) error
	// AssetTransfer moves the asset from engine custody to receiver.
	AssetTransfer(ctx context.Context, receiver, assetID string, serial uint64) error
}

// Adapter is the tagged sum of the two supported ledger variants. Exactly
// one of Fungible/NonFungible is populated, selected by Kind.
type Adapter struct {
	Kind        Kind
	Fungible    Fungible
	NonFungible NonFungible
}

// NewFungible wraps a Fungible implementation as an Adapter.
func NewFungible(impl Fungible) Adapter {
	return Adapter{Kind: KindFungible, Fungible: impl}
}

// NewNonFungible wraps a NonFungible implementation as an Adapter.
func NewNonFungible(impl NonFungible) Adapter {
	return Adapter{Kind: KindNonFungible, NonFungible: impl}
}
