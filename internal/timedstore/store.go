// Package timedstore is an expiring cache over a storage.Storage namespace.
// Values are wrapped in an expiry envelope on write and checked on read;
// nothing runs in the background, so an expired entry lingers until a read or
// a ClearExpired sweep notices it.
package timedstore

import (
	"encoding/json"
	"time"

	"github.com/leonardcser/cachestorage/internal/expiry"
	"github.com/leonardcser/cachestorage/internal/storage"
)

// Store reads and writes values of type T. T must survive a JSON round trip.
// Several Stores may share one namespace; the last write to a key wins.
type Store[T any] struct {
	storage storage.Storage
	now     func() time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New binds a Store to s.
func New[T any](s storage.Storage, opts ...Option) *Store[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{storage: s, now: o.now}
}

// Get returns the value under key while it is unexpired. An absent or
// unreadable entry is a miss and is left in place; an expired entry is a miss
// and is deleted. Storage errors are returned as is.
func (s *Store[T]) Get(key string) (T, bool, error) {
	var zero T
	raw, err := s.storage.GetItem(key)
	if err != nil {
		return zero, false, err
	}
	entry, ok := expiry.Decode[T](raw)
	if !ok {
		return zero, false, nil
	}
	if entry.Live(s.now()) {
		return entry.Value, true, nil
	}
	if err := s.Delete(key); err != nil {
		return zero, false, err
	}
	return zero, false, nil
}

// Set stores value under key until now plus the span given by opts (five
// minutes by default), replacing any earlier entry.
func (s *Store[T]) Set(key string, value T, opts ...expiry.Option) error {
	exp := expiry.After(s.now(), opts...)
	raw, err := expiry.Encode(expiry.NewStoredItem(value, exp), exp)
	if err != nil {
		return err
	}
	return s.storage.SetItem(key, raw)
}

// Delete removes key whether or not it exists.
func (s *Store[T]) Delete(key string) error {
	return s.storage.RemoveItem(key)
}

// ClearExpired walks every key in the namespace and removes the entries
// whose expiration is at or before now. Keys that do not decode as an
// envelope are skipped, whoever wrote them. It returns how many entries were
// removed.
//
// The marker field is not consulted, so any foreign JSON shaped like an
// envelope is treated as one.
func (s *Store[T]) ClearExpired() (int, error) {
	keys, err := s.storage.Keys()
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for _, key := range keys {
		raw, err := s.storage.GetItem(key)
		if err != nil {
			return removed, err
		}
		entry, ok := expiry.Decode[json.RawMessage](raw)
		if !ok || entry.Live(now) {
			continue
		}
		if err := s.storage.RemoveItem(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
