// Package peers holds the verifier-hash table a registration responder
// keeps for its callers.
//
// Entries are keyed by the caller's host address, not by identity. A second
// registration from the same host overwrites the first. There is no expiry.
package peers

import (
	"errors"
	"net"
	"net/netip"
	"sync"

	"github.com/pion/logging"
)

// Table errors.
var (
	// ErrNotRegistered is returned when no entry exists for an address.
	ErrNotRegistered = errors.New("peers: address not registered")
	// ErrEmptyAddress is returned when a caller address is empty.
	ErrEmptyAddress = errors.New("peers: empty address")
)

// TableConfig configures a peer table.
type TableConfig struct {
	// Store persists entries across restarts. If nil, entries live only in
	// memory.
	Store Store

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Table maps caller host addresses to the hash h = hash(v || ID) computed
// when that caller registered.
//
// Thread Safety: All methods are safe for concurrent use. Lookups never
// create entries.
type Table struct {
	mu      sync.RWMutex
	entries map[string][]byte
	store   Store
	log     logging.LeveledLogger
}

// NewTable creates a table, loading existing entries from config.Store.
func NewTable(config TableConfig) (*Table, error) {
	t := &Table{
		entries: make(map[string][]byte),
		store:   config.Store,
	}
	if config.LoggerFactory != nil {
		t.log = config.LoggerFactory.NewLogger("peers")
	}

	if t.store != nil {
		loaded, err := t.store.Load()
		if err != nil {
			return nil, err
		}
		for addr, h := range loaded {
			t.entries[HostKey(addr)] = []byte(h)
		}
		if t.log != nil {
			t.log.Debugf("loaded %d peer entries", len(loaded))
		}
	}

	return t, nil
}

// HostKey reduces a network address to the key used by the table: the host
// part without port, with IPv4-mapped IPv6 addresses rewritten to IPv4.
func HostKey(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.Unmap().WithZone("").String()
	}
	return host
}

// Put stores h for the caller at addr, replacing any previous entry.
// With a Store configured the whole table is saved; if the save fails the
// previous entry is restored and the error returned.
func (t *Table) Put(addr string, h []byte) error {
	key := HostKey(addr)
	if key == "" {
		return ErrEmptyAddress
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, replaced := t.entries[key]
	t.entries[key] = append([]byte(nil), h...)
	if t.log != nil {
		if replaced {
			t.log.Infof("replaced verifier hash for %s", key)
		} else {
			t.log.Infof("registered verifier hash for %s", key)
		}
	}

	if t.store == nil {
		return nil
	}
	if err := t.store.Save(t.snapshotLocked()); err != nil {
		if replaced {
			t.entries[key] = prev
		} else {
			delete(t.entries, key)
		}
		return err
	}
	return nil
}

// Get returns the entry for the caller at addr, or ErrNotRegistered.
func (t *Table) Get(addr string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.entries[HostKey(addr)]
	if !ok {
		return nil, ErrNotRegistered
	}
	return append([]byte(nil), h...), nil
}

// Remove deletes the entry for addr.
// No error is returned if the entry doesn't exist. A failed save keeps
// the entry.
func (t *Table) Remove(addr string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := HostKey(addr)
	prev, ok := t.entries[key]
	if !ok {
		return nil
	}
	delete(t.entries, key)

	if t.store == nil {
		return nil
	}
	if err := t.store.Save(t.snapshotLocked()); err != nil {
		t.entries[key] = prev
		return err
	}
	return nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns a copy of all entries.
func (t *Table) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() map[string]string {
	out := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		out[k] = string(v)
	}
	return out
}
