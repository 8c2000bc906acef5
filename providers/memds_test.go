package providers

import (
	"context"
	"strings"
	"sync"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
)

// memBatching is a minimal in-memory ds.Batching used across this
// package's tests in place of a real backend (a badger/leveldb store
// in production). It exists purely so tests never touch disk or
// network, matching the project's ambient stance that the external
// Datastore is a test double here.
type memBatching struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemBatching() *memBatching {
	return &memBatching{m: make(map[string][]byte)}
}

func (d *memBatching) Put(_ context.Context, key ds.Key, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	d.m[key.String()] = cp
	return nil
}

func (d *memBatching) Delete(_ context.Context, key ds.Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, key.String())
	return nil
}

func (d *memBatching) Get(_ context.Context, key ds.Key) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.m[key.String()]
	if !ok {
		return nil, ds.ErrNotFound
	}
	return v, nil
}

func (d *memBatching) Has(_ context.Context, key ds.Key) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.m[key.String()]
	return ok, nil
}

func (d *memBatching) GetSize(ctx context.Context, key ds.Key) (int, error) {
	v, err := d.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return len(v), nil
}

func (d *memBatching) Sync(context.Context, ds.Key) error { return nil }

func (d *memBatching) Close() error { return nil }

func (d *memBatching) Query(_ context.Context, q dsq.Query) (dsq.Results, error) {
	d.mu.Lock()
	entries := make([]dsq.Entry, 0, len(d.m))
	for k, v := range d.m {
		if !matchesPrefix(k, q.Prefix) {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		entries = append(entries, dsq.Entry{Key: k, Value: cp, Size: len(cp)})
	}
	d.mu.Unlock()
	return dsq.ResultsWithEntries(q, entries), nil
}

func (d *memBatching) Batch(context.Context) (ds.Batch, error) {
	return &memBatch{d: d, puts: map[string][]byte{}, deletes: map[string]struct{}{}}, nil
}

// count reports how many keys currently live under prefix; tests use
// it to assert on backend state directly, bypassing the cache.
func (d *memBatching) count(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for k := range d.m {
		if matchesPrefix(k, prefix) {
			n++
		}
	}
	return n
}

func matchesPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	trimmed := strings.TrimSuffix(prefix, "/")
	if key == trimmed {
		return true
	}
	return strings.HasPrefix(key, trimmed+"/")
}

type memBatch struct {
	d       *memBatching
	puts    map[string][]byte
	deletes map[string]struct{}
}

func (b *memBatch) Put(_ context.Context, key ds.Key, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.puts[key.String()] = cp
	delete(b.deletes, key.String())
	return nil
}

func (b *memBatch) Delete(_ context.Context, key ds.Key) error {
	b.deletes[key.String()] = struct{}{}
	delete(b.puts, key.String())
	return nil
}

func (b *memBatch) Commit(context.Context) error {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	for k := range b.deletes {
		delete(b.d.m, k)
	}
	for k, v := range b.puts {
		b.d.m[k] = v
	}
	return nil
}
