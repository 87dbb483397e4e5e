// Package boundary defines the contract HyperGraphDB consumes from the
// underlying append-only log implementation. Replication, peer discovery,
// and chunk exchange live behind this interface and are out of scope for
// this module (spec §1/§6) — callers supply a Corestore, typically backed
// by a real hypercore-style log in production or pkg/corestore/badgerstore
// for local use and tests.
package boundary

import "errors"

// ErrWritePermission is returned when a mutation is attempted against a
// Transaction opened on a feed this process cannot write to.
var ErrWritePermission = errors.New("boundary: feed is not writable")

// ErrNotFound is returned by Transaction.Get when no record exists at the
// requested id (including ids beyond the transaction's pinned version).
var ErrNotFound = errors.New("boundary: record not found")

// Corestore opens or creates feeds by key, and knows the local default
// writable feed.
type Corestore interface {
	// Get opens (creating if necessary) the feed for key. A nil/empty key
	// resolves to the local default writable feed.
	Get(key []byte) (Feed, error)
	// DefaultKey returns the key of the local default writable feed,
	// creating it if it does not exist yet.
	DefaultKey() ([]byte, error)
}

// Feed is one append-only log: an ordered, immutable sequence of records
// identified by Key.
type Feed interface {
	// Key is this feed's cryptographic identifier.
	Key() []byte
	// Writable reports whether this process holds write authority over
	// the feed.
	Writable() bool
	// Length returns the feed's current length (number of appended
	// records), used as the default transaction version.
	Length() (uint64, error)
	// Transaction opens a snapshot at the given length. version == 0 means
	// "current length."
	Transaction(version uint64) (Transaction, error)
}

// Transaction is a read (or, for writable feeds, read/write) snapshot over
// one feed at a fixed length.
type Transaction interface {
	// StoreKey is the owning feed's key (mirrors spec §6's
	// transaction.store.key).
	StoreKey() []byte
	// Version is the feed length this transaction is pinned to.
	Version() uint64
	// Get returns the record at the given 1-based id.
	Get(id uint64) ([]byte, error)
	// Put appends a record and returns its assigned id. Returns
	// ErrWritePermission if the feed is not writable. Puts are staged, not
	// durable, until Commit succeeds.
	Put(record []byte) (uint64, error)
	// Commit makes every Put issued through this transaction durable as one
	// atomic batch. A transaction with no pending Put may call Commit as a
	// no-op. Not calling Commit before Close discards any staged Puts,
	// implementing spec §4.D's "partial failure aborts the transaction."
	Commit() error
	// Close releases any resources held by the transaction. Safe to call
	// more than once.
	Close() error
}
