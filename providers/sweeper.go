package providers

import (
	"context"
	"fmt"
	"time"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"

	"github.com/libp2p/go-libp2p-providers/internal"
)

// sweepOnce is the sweeper's algorithm, admitted through the
// Serializer as a single unit of work by sweepLoop. It scans every
// provider record, stages the stale ones for deletion, commits that
// batch atomically, and reconciles the cache. A scan or commit
// failure aborts the sweep with no partial batch committed (the
// backend's Batch guarantees that); the next tick retries from
// scratch. Per-entry decode failures are tolerated — logged and
// skipped — because a single corrupt entry must never abort the rest
// of the sweep.
func (r *Registry) sweepOnce(ctx context.Context) error {
	ctx, span := internal.StartSpan(ctx, "sweep")
	defer span.End()

	start := r.clock.Now()

	results, err := r.backend.Query(ctx, dsq.Query{Prefix: providerPrefix})
	if err != nil {
		return fmt.Errorf("%w: sweep query: %s", ErrBackendFailure, err)
	}
	defer results.Close()

	batch, err := r.backend.Batch(ctx)
	if err != nil {
		return fmt.Errorf("%w: sweep batch: %s", ErrBackendFailure, err)
	}

	deleted := map[string]map[string]struct{}{} // cidText -> stale peerTexts
	staged := 0

	for {
		e, ok := results.NextSync()
		if !ok {
			break
		}
		if e.Error != nil {
			return fmt.Errorf("%w: sweep scan: %s", ErrBackendFailure, e.Error)
		}

		cidText, peerText, err := parseKey(e.Key)
		if err != nil {
			r.logger.Warnf("sweep: skipping malformed key %q: %s", e.Key, err)
			continue
		}

		ts, err := DecodeTimestamp(e.Value)
		if err != nil {
			r.logger.Warnf("sweep: skipping malformed record %q: %s", e.Key, err)
			continue
		}

		age := start.Sub(time.UnixMilli(int64(ts)))
		if age <= r.provideValidity {
			continue
		}

		if err := batch.Delete(ctx, ds.NewKey(e.Key)); err != nil {
			return fmt.Errorf("%w: sweep delete %s: %s", ErrBackendFailure, e.Key, err)
		}
		if deleted[cidText] == nil {
			deleted[cidText] = make(map[string]struct{})
		}
		deleted[cidText][peerText] = struct{}{}
		staged++
	}

	if staged > 0 {
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("%w: sweep commit: %s", ErrBackendFailure, err)
		}
	}

	r.reconcileCache(deleted)

	r.logger.Debugf("sweep complete: %d stale records removed across %d cids", staged, len(deleted))
	return nil
}

// reconcileCache removes the swept-away peers from any cached entries,
// dropping the entry entirely if it becomes empty.
func (r *Registry) reconcileCache(deleted map[string]map[string]struct{}) {
	for cidText, peers := range deleted {
		pm, ok := r.cache.Get(cidText)
		if !ok {
			continue
		}
		for peerText := range peers {
			delete(pm, peerText)
		}
		if len(pm) == 0 {
			r.cache.Remove(cidText)
		} else {
			r.cache.Put(cidText, pm)
		}
	}
}
