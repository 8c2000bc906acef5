package providers

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultCacheSize       = 256
	defaultCleanupInterval = time.Hour
	defaultProvideValidity = 24 * time.Hour
)

// Option configures a Registry at construction time, mirroring
// go-libp2p-kad-dht's Option/applyOptions pattern for its
// ProviderManager.
type Option func(*Registry) error

func (r *Registry) applyOptions(opts ...Option) error {
	for i, opt := range opts {
		if err := opt(r); err != nil {
			return fmt.Errorf("provider registry option %d failed: %w", i, err)
		}
	}
	return nil
}

// WithCacheSize sets the LRU capacity, in number of distinct CIDs.
// Defaults to 256.
func WithCacheSize(n int) Option {
	return func(r *Registry) error {
		if n <= 0 {
			return fmt.Errorf("cache size must be positive, got %d", n)
		}
		r.cacheSize = n
		return nil
	}
}

// WithCleanupInterval sets the time between sweeps. Defaults to 1h.
func WithCleanupInterval(d time.Duration) Option {
	return func(r *Registry) error {
		if d <= 0 {
			return fmt.Errorf("cleanup interval must be positive, got %s", d)
		}
		r.cleanupInterval = d
		return nil
	}
}

// WithProvideValidity sets the age after which a record is considered
// stale. Defaults to 24h.
func WithProvideValidity(d time.Duration) Option {
	return func(r *Registry) error {
		if d <= 0 {
			return fmt.Errorf("provide validity must be positive, got %s", d)
		}
		r.provideValidity = d
		return nil
	}
}

// WithClock overrides the wall-clock/timer source. Tests use
// clock.NewMock() here to drive virtual time.
func WithClock(c Clock) Option {
	return func(r *Registry) error {
		r.clock = c
		return nil
	}
}

// WithCodec overrides the CID/peer text codec.
func WithCodec(c Codec) Option {
	return func(r *Registry) error {
		r.codec = c
		return nil
	}
}

// WithLogger overrides the logger sink. Defaults to the package-level
// "providers" go-log/v2 logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Registry) error {
		r.logger = l
		return nil
	}
}
