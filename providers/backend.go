package providers

import (
	"context"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
)

// BackendTier is the capability set the registry needs from a durable
// key-value backend: put a single entry, prefix-scan, and stage a
// batch of deletes for atomic commit. Any ds.Batching already
// satisfies it; it is named as its own interface so the registry
// depends on the contract, not on go-datastore's full surface.
type BackendTier interface {
	Put(ctx context.Context, key ds.Key, value []byte) error
	Query(ctx context.Context, q dsq.Query) (dsq.Results, error)
	Batch(ctx context.Context) (ds.Batch, error)
}

// ds.Batching implements every method BackendTier needs.
var _ BackendTier = ds.Batching(nil)
