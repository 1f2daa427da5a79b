// Package badgerkv implements internal/kv.Store on top of Badger v3, the
// durable single-replica reference adapter for the token registry
// (§4.1 "Key-Value adapter"), adapted from the teacher's BadgerEngine.
//
// A Store keeps a sharded in-memory read-through cache in front of Badger.
// Fetch(key, refresh=false) tries the cache first; Fetch(key, refresh=true)
// bypasses it and reloads from Badger, repopulating the cache on the way
// out — this is the "local caching layer" §4.1 and §4.8 (peer refresh) are
// written against.
package badgerkv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetkit/tokenreg/pkg/cmap"
	"github.com/fleetkit/tokenreg/pkg/crypto/adaptive"
)

// ErrClosed is returned by operations issued after Close.
var ErrClosed = errors.New("badgerkv: store closed")

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger sets the structured logger used for internal diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithCipher enables authenticated at-rest encryption of stored values.
// The key string is used as additional authenticated data, binding a
// ciphertext to the KV key it was stored under.
func WithCipher(cipher adaptive.Cipher) Option {
	return func(s *Store) { s.cipher = cipher }
}

// Store is a Badger-backed implementation of kv.Store.
type Store struct {
	db     *badger.DB
	cache  *cmap.Map[string, map[string]any]
	cipher adaptive.Cipher
	logger *slog.Logger
	closed bool

	metricsHits   prometheus.Counter
	metricsMisses prometheus.Counter
}

// Open opens (or creates) a Badger database rooted at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("badgerkv: dir is required")
	}

	badgerOpts := badger.DefaultOptions(dir)
	badgerOpts.Logger = nil // silenced; the registry logs at its own layer

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open: %w", err)
	}

	s := &Store{
		db:     db,
		cache:  cmap.New[string, map[string]any](),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RegisterMetrics registers Store's Prometheus counters, grounded on the
// teacher's BadgerEngine.RegisterMetrics.
func (s *Store) RegisterMetrics(registry *prometheus.Registry) *Store {
	s.metricsHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tokenreg",
		Subsystem: "badgerkv",
		Name:      "cache_hits_total",
		Help:      "Fetches served from the in-memory read-through cache.",
	})
	s.metricsMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tokenreg",
		Subsystem: "badgerkv",
		Name:      "cache_misses_total",
		Help:      "Fetches that bypassed or missed the read-through cache.",
	})
	registry.MustRegister(s.metricsHits, s.metricsMisses)
	return s
}

// Fetch implements kv.Store.
func (s *Store) Fetch(_ context.Context, key string, refresh bool) (map[string]any, bool, error) {
	if s.closed {
		return nil, false, ErrClosed
	}

	if !refresh {
		if value, ok := s.cache.Get(key); ok {
			s.count(s.metricsHits)
			return cloneValue(value), true, nil
		}
	}
	s.count(s.metricsMisses)

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		s.cache.Delete(key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badgerkv: get %q: %w", key, err)
	}

	if s.cipher != nil {
		raw, err = s.cipher.Decrypt(raw, []byte(key))
		if err != nil {
			return nil, false, fmt.Errorf("badgerkv: decrypt %q: %w", key, err)
		}
	}

	var value map[string]any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("badgerkv: decode %q: %w", key, err)
	}

	s.cache.Set(key, value)
	return cloneValue(value), true, nil
}

// Store implements kv.Store.
func (s *Store) Store(_ context.Context, key string, value map[string]any) error {
	if s.closed {
		return ErrClosed
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("badgerkv: encode %q: %w", key, err)
	}

	if s.cipher != nil {
		raw, err = s.cipher.Encrypt(raw, []byte(key))
		if err != nil {
			return fmt.Errorf("badgerkv: encrypt %q: %w", key, err)
		}
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	}); err != nil {
		return fmt.Errorf("badgerkv: set %q: %w", key, err)
	}

	// Read-your-writes on this replica (§4.1).
	s.cache.Set(key, cloneValue(value))
	return nil
}

// Delete implements kv.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("badgerkv: delete %q: %w", key, err)
	}
	s.cache.Delete(key)
	return nil
}

// Keys returns every key currently stored, for collaborators that need full
// enumeration (service.KVTokenLister) rather than point lookups. Not part of
// kv.Store; grounded on the teacher's BadgerEngine.Scan/Prune keys-only
// iterator pattern.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerkv: keys: %w", err)
	}
	return keys, nil
}

// Close flushes and closes the underlying Badger database.
func (s *Store) Close() error {
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badgerkv: close: %w", err)
	}
	return nil
}

// RunGC runs one Badger value-log GC pass. Intended to be called
// periodically by the owning server, not internally scheduled, so its
// cadence is a deployment concern rather than a library concern.
func (s *Store) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

func (s *Store) count(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

func cloneValue(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	clone := make(map[string]any, len(value))
	for k, v := range value {
		clone[k] = v
	}
	return clone
}
