// Package storage defines the host key-value facility the timed cache is
// layered on, together with the hosts this repository ships: an in-process
// map, a bbolt file, Redis, and a client for the storage daemon.
package storage

import (
	"errors"
	"fmt"

	"github.com/samber/mo"
)

// Storage is a string key-value namespace. Implementations are safe for
// concurrent use; writes from one caller are immediately visible to every
// other caller sharing the namespace.
type Storage interface {
	// GetItem returns the value stored under key, or None when absent.
	GetItem(key string) (mo.Option[string], error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
	// Keys lists every key currently in the namespace.
	Keys() ([]string, error)
}

// Namespace selects which storage a caller binds to.
type Namespace string

const (
	// Local is durable across process restarts.
	Local Namespace = "local"
	// Session lives only as long as the owning process.
	Session Namespace = "session"
)

var (
	ErrUnknownNamespace = errors.New("storage: unknown namespace")
	ErrClosed           = errors.New("storage: closed")
)

// ParseNamespace maps a tag to a Namespace. The empty tag means Local.
func ParseNamespace(tag string) (Namespace, error) {
	switch Namespace(tag) {
	case "", Local:
		return Local, nil
	case Session:
		return Session, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNamespace, tag)
	}
}
