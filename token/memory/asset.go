package memory

import (
	"context"
	"fmt"
	"sync"
)

// AssetRegistry is an in-memory reference implementation of
// token.NonFungible: it tracks the current holder of each (assetID,
// serial) pair, including the engine's own custody while an asset is
// locked mid-cycle.
type AssetRegistry struct {
	mu      sync.Mutex
	owners  map[string]string
	custody string
}

// NewAssetRegistry constructs an asset registry. custodyID is the engine's
// own identity, recorded as the owner while an asset sits in custody
// between lock and disbursement.
func NewAssetRegistry(custodyID string) *AssetRegistry {
	return &AssetRegistry{owners: make(map[string]string), custody: custodyID}
}

func key(assetID string, serial uint64) string {
	return fmt.Sprintf("%s\x00%d", assetID, serial)
}

// Mint assigns initial ownership of an asset, for test/demo setup.
func (r *AssetRegistry) Mint(owner, assetID string, serial uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[key(assetID, serial)] = owner
}

func (r *AssetRegistry) OwnerOf(_ context.Context, assetID string, serial uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[key(assetID, serial)]
	if !ok {
		return "", fmt.Errorf("memory asset registry: unknown asset %s#%d", assetID, serial)
	}
	return owner, nil
}

func (r *AssetRegistry) AssetTransferFrom(_ context.Context, owner, assetID string, serial uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(assetID, serial)
	current, ok := r.owners[k]
	if !ok || current != owner {
		return fmt.Errorf("memory asset registry: %s does not hold %s#%d", owner, assetID, serial)
	}
	r.owners[k] = r.custody
	return nil
}

func (r *AssetRegistry) AssetTransfer(_ context.Context, receiver, assetID string, serial uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(assetID, serial)
	current, ok := r.owners[k]
	if !ok || current != r.custody {
		return fmt.Errorf("memory asset registry: %s#%d is not held in custody", assetID, serial)
	}
	r.owners[k] = receiver
	return nil
}
