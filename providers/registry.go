// Package providers implements the local authority a content-routing
// node queries to remember which peers claim to serve which content:
// a two-tier store (a durable Datastore fronted by a bounded LRU),
// serialized through a single-slot queue, swept periodically to
// reclaim stale claims.
package providers

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	"go.uber.org/zap"

	"github.com/libp2p/go-libp2p-providers/internal"
	"github.com/libp2p/go-libp2p/core/peer"
)

// ProviderStore is the façade the routing layer depends on: it only
// ever calls AddProvider and GetProviders.
type ProviderStore interface {
	AddProvider(ctx context.Context, c cid.Cid, prov peer.ID) error
	GetProviders(ctx context.Context, c cid.Cid) ([]peer.ID, error)
	io.Closer
}

// Registry is the public façade composing the Codec, KeyBuilder,
// CacheTier, BackendTier, Serializer, and Sweeper described in the
// design. cache and backend are touched only from inside the
// Serializer's single slot; running and sweepDone are guarded by mu
// and changed only by Start/Stop; self, codec, clock, config, logger,
// serializer, ctx, and cancel are fixed after construction and safe
// to read from any goroutine.
type Registry struct {
	self peer.ID

	codec Codec
	clock Clock

	cacheSize       int
	cleanupInterval time.Duration
	provideValidity time.Duration
	logger          *zap.SugaredLogger

	cache   *CacheTier
	backend BackendTier // the caller's ds.Batching, narrowed to the contract in backend.go

	serializer *Serializer

	mu        sync.Mutex
	running   bool
	sweepDone chan struct{} // closed when the running sweep loop exits

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ ProviderStore = (*Registry)(nil)

// NewRegistry constructs a Registry over dstore. self is the local
// peer — AddProvider never special-cases it (address-book bookkeeping
// for one's own multiaddrs is out of scope here), it is only kept for
// parity with the wider DHT's ProviderManager constructor shape.
// The Serializer starts running immediately; Start/Stop control only
// the sweep timer, so AddProvider/GetProviders work correctly even
// before Start is called (they simply won't benefit from sweeping).
func NewRegistry(ctx context.Context, self peer.ID, dstore ds.Batching, opts ...Option) (*Registry, error) {
	r := &Registry{
		self:            self,
		codec:           DefaultCodec(),
		clock:           realClock(),
		cacheSize:       defaultCacheSize,
		cleanupInterval: defaultCleanupInterval,
		provideValidity: defaultProvideValidity,
		logger:          &log.SugaredLogger,
		backend:         dstore,
	}
	if err := r.applyOptions(opts...); err != nil {
		return nil, err
	}

	cache, err := NewCacheTier(r.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("provider registry: %w", err)
	}
	r.cache = cache

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.serializer = NewSerializer(r.ctx)

	return r, nil
}

// Start is idempotent: it marks the registry running and schedules
// the sweeper at cleanupInterval. No sweep runs before Start.
func (r *Registry) Start() {
	_, span := internal.StartSpan(context.Background(), "Start")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.sweepDone = make(chan struct{})
	r.wg.Add(1)
	go r.sweepLoop(r.sweepDone)
}

// Stop is idempotent. It cancels the sweeper's next tick; an in-flight
// sweep (already admitted to the Serializer) runs to completion
// because Stop does not touch the Serializer or the registry's
// context. After Stop, AddProvider/GetProviders still drain through
// the Serializer to completion, but no new sweep is scheduled until a
// subsequent Start.
func (r *Registry) Stop() {
	_, span := internal.StartSpan(context.Background(), "Stop")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	close(r.sweepDone)
}

// Close stops the sweeper and shuts the Serializer down; it exists so
// embedders can release resources deterministically (e.g. in tests).
// Every write lands synchronously in the backend (see
// addProviderLocked), so there is no buffer to flush on the way out.
func (r *Registry) Close() error {
	r.Stop()
	r.cancel()
	r.wg.Wait()
	return nil
}

func (r *Registry) sweepLoop(done <-chan struct{}) {
	defer r.wg.Done()
	timer := r.clock.Timer(r.cleanupInterval)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			err := r.serializer.Do(r.ctx, func() error {
				return r.sweepOnce(r.ctx)
			})
			if err != nil {
				r.logger.Errorf("provider sweep failed: %s", err)
			}
			timer.Reset(r.cleanupInterval)
		case <-done:
			return
		case <-r.ctx.Done():
			return
		}
	}
}

// AddProvider records that prov claims to serve c as of now. A
// second AddProvider for the same (c, prov) simply refreshes the
// timestamp; no error is raised for re-providing.
func (r *Registry) AddProvider(ctx context.Context, c cid.Cid, prov peer.ID) error {
	ctx, span := internal.StartSpan(ctx, "AddProvider")
	defer span.End()

	return r.serializer.Do(ctx, func() error {
		return r.addProviderLocked(ctx, c, prov)
	})
}

func (r *Registry) addProviderLocked(ctx context.Context, c cid.Cid, prov peer.ID) error {
	cidText := r.codec.CIDText(c)
	peerText := r.codec.PeerText(prov)
	now := r.clock.Now()
	nowMs := uint64(now.UnixMilli())

	pm, ok := r.cache.Get(cidText)
	if !ok {
		loaded, err := r.loadPeerMap(ctx, cidText)
		if err != nil {
			return err
		}
		pm = loaded
	}
	pm[peerText] = nowMs
	r.cache.Put(cidText, pm) // refreshes LRU recency even though it's the same map

	key := ds.NewKey(recordKey(cidText, peerText))
	if err := r.backend.Put(ctx, key, EncodeTimestamp(nowMs)); err != nil {
		return fmt.Errorf("%w: put %s: %s", ErrBackendFailure, key, err)
	}
	return nil
}

// GetProviders returns the peers currently known to provide c. An
// unknown CID returns the empty list, never an error. Order is
// unspecified but stable within a single call.
func (r *Registry) GetProviders(ctx context.Context, c cid.Cid) ([]peer.ID, error) {
	ctx, span := internal.StartSpan(ctx, "GetProviders")
	defer span.End()

	var out []peer.ID
	err := r.serializer.Do(ctx, func() error {
		cidText := r.codec.CIDText(c)
		pm, ok := r.cache.Get(cidText)
		if !ok {
			loaded, err := r.loadPeerMap(ctx, cidText)
			if err != nil {
				return err
			}
			pm = loaded
			if len(pm) > 0 {
				r.cache.Put(cidText, pm)
			}
		}
		out = make([]peer.ID, 0, len(pm))
		for peerText := range pm {
			p, err := r.codec.DecodePeerText(peerText)
			if err != nil {
				// Cannot happen for text this package itself produced;
				// tolerate it the same way a scan tolerates corruption.
				r.logger.Errorf("unreadable cached peer text %q for %s: %s", peerText, cidText, err)
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// loadPeerMap prefix-scans the backend for every record stored under
// cidText and materializes it into a PeerMap. It does not itself
// enforce provideValidity — expiry is the sweeper's sole
// responsibility; a record can be transiently returned here even if
// stale, until the next sweep reclaims it. Malformed keys and records
// are logged and skipped, never surfaced.
func (r *Registry) loadPeerMap(ctx context.Context, cidText string) (PeerMap, error) {
	results, err := r.backend.Query(ctx, dsq.Query{Prefix: cidPrefix(cidText)})
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %s", ErrBackendFailure, cidPrefix(cidText), err)
	}
	defer results.Close()

	pm := PeerMap{}
	for {
		e, ok := results.NextSync()
		if !ok {
			break
		}
		if e.Error != nil {
			r.logger.Errorf("provider scan error under %s: %s", cidText, e.Error)
			continue
		}
		gotCIDText, peerText, err := parseKey(e.Key)
		if err != nil {
			r.logger.Warnf("skipping malformed provider key %q: %s", e.Key, err)
			continue
		}
		if gotCIDText != cidText {
			continue
		}
		ts, err := DecodeTimestamp(e.Value)
		if err != nil {
			r.logger.Warnf("skipping malformed provider record %q: %s", e.Key, err)
			continue
		}
		pm[peerText] = ts
	}
	return pm, nil
}
