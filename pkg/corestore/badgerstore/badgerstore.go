// Package badgerstore is a reference boundary.Corestore backed by a single
// BadgerDB instance, each feed a key-prefixed sub-sequence. It exists so
// HyperGraphDB's core can run and be tested without a real peer-to-peer
// append-only log (spec §1 puts that networking layer out of scope) —
// grounded on the teacher's own storage engine
// (_examples/straga-Mimir_lite/nornicdb/pkg/storage/badger.go): single-byte
// key prefixes, one BadgerDB per process, explicit Close/Sync.
package badgerstore

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/hypergraphdb/hypergraphdb/pkg/boundary"
)

// Key prefixes within the single Badger keyspace.
const (
	prefixFeedMeta = byte(0x01) // feedMeta : feedKey -> meta{length, writable}
	prefixRecord   = byte(0x02) // record   : feedKey | seq(8 BE bytes) -> bytes
	prefixLocal    = byte(0x03) // local default feed key, singleton record
)

// Store is a boundary.Corestore over one BadgerDB instance.
type Store struct {
	mu  sync.Mutex
	db  *badger.DB
	log *log.Logger
}

// Open opens (creating if necessary) a Badger-backed corestore rooted at dir.
// dir == "" opens an in-memory instance, useful for tests.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: opening badger at %q: %w", dir, err)
	}
	return &Store{db: db, log: log.New(log.Writer(), "badgerstore: ", log.LstdFlags)}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(feed []byte, seq uint64) []byte {
	k := make([]byte, 1+len(feed)+8)
	k[0] = prefixRecord
	copy(k[1:], feed)
	binary.BigEndian.PutUint64(k[1+len(feed):], seq)
	return k
}

func metaKey(feed []byte) []byte {
	k := make([]byte, 1+len(feed))
	k[0] = prefixFeedMeta
	copy(k[1:], feed)
	return k
}

type feedMeta struct {
	length   uint64
	writable bool
}

func encodeMeta(m feedMeta) []byte {
	b := make([]byte, 9)
	binary.BigEndian.PutUint64(b, m.length)
	if m.writable {
		b[8] = 1
	}
	return b
}

func decodeMeta(b []byte) feedMeta {
	return feedMeta{length: binary.BigEndian.Uint64(b), writable: b[8] != 0}
}

// DefaultKey returns this process's local writable feed key, generating and
// persisting one on first use.
func (s *Store) DefaultKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var key []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte{prefixLocal})
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			key = append([]byte(nil), val...)
			return nil
		})
	})
	if err == nil {
		return key, nil
	}
	if err != badger.ErrKeyNotFound {
		return nil, fmt.Errorf("badgerstore: reading default feed key: %w", err)
	}

	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("badgerstore: generating default feed key: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte{prefixLocal}, key); err != nil {
			return err
		}
		return txn.Set(metaKey(key), encodeMeta(feedMeta{writable: true}))
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: persisting default feed key: %w", err)
	}
	return key, nil
}

// Get opens (creating if necessary) the feed for key. A nil/empty key
// resolves to the local default feed.
func (s *Store) Get(key []byte) (boundary.Feed, error) {
	if len(key) == 0 {
		k, err := s.DefaultKey()
		if err != nil {
			return nil, err
		}
		key = k
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var meta feedMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta = decodeMeta(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		// A feed key we've never seen locally is a remote feed: readable,
		// never locally writable.
		meta = feedMeta{writable: false}
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(metaKey(key), encodeMeta(meta))
		}); err != nil {
			return nil, fmt.Errorf("badgerstore: registering feed: %w", err)
		}
		s.log.Printf("registered remote feed %x", key)
	} else if err != nil {
		return nil, fmt.Errorf("badgerstore: loading feed meta: %w", err)
	}

	return &feed{store: s, key: append([]byte(nil), key...), writable: meta.writable}, nil
}

type feed struct {
	store    *Store
	key      []byte
	writable bool
}

func (f *feed) Key() []byte    { return f.key }
func (f *feed) Writable() bool { return f.writable }

func (f *feed) Length() (uint64, error) {
	var length uint64
	err := f.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(f.key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			length = decodeMeta(val).length
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("badgerstore: reading feed length: %w", err)
	}
	return length, nil
}

func (f *feed) Transaction(version uint64) (boundary.Transaction, error) {
	if version == 0 {
		l, err := f.Length()
		if err != nil {
			return nil, err
		}
		version = l
	}
	txn := f.store.db.NewTransaction(f.writable)
	return &transaction{feed: f, txn: txn, version: version}, nil
}

type transaction struct {
	mu      sync.Mutex
	feed    *feed
	txn     *badger.Txn
	version uint64
	dirty   bool
	closed  bool
}

func (t *transaction) StoreKey() []byte { return t.feed.key }
func (t *transaction) Version() uint64  { return t.version }

func (t *transaction) Get(id uint64) ([]byte, error) {
	if id == 0 || id > t.version {
		return nil, fmt.Errorf("badgerstore: id %d not visible at version %d: %w", id, t.version, boundary.ErrNotFound)
	}
	var out []byte
	item, err := t.txn.Get(recordKey(t.feed.key, id))
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("badgerstore: record %d: %w", id, boundary.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		out = append([]byte(nil), val...)
		return nil
	})
	return out, err
}

func (t *transaction) Put(record []byte) (uint64, error) {
	if !t.feed.writable {
		return 0, boundary.ErrWritePermission
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.feed.store.mu.Lock()
	defer t.feed.store.mu.Unlock()

	var meta feedMeta
	item, err := t.txn.Get(metaKey(t.feed.key))
	if err != nil {
		return 0, fmt.Errorf("badgerstore: loading feed meta for write: %w", err)
	}
	if err := item.Value(func(val []byte) error { meta = decodeMeta(val); return nil }); err != nil {
		return 0, err
	}

	seq := meta.length + 1
	if err := t.txn.Set(recordKey(t.feed.key, seq), record); err != nil {
		return 0, fmt.Errorf("badgerstore: writing record: %w", err)
	}
	meta.length = seq
	if err := t.txn.Set(metaKey(t.feed.key), encodeMeta(meta)); err != nil {
		return 0, fmt.Errorf("badgerstore: updating feed meta: %w", err)
	}
	t.version = seq
	t.dirty = true
	return seq, nil
}

// Commit flushes every Put staged since this transaction was opened (or
// since the last Commit) to Badger in one atomic batch. Puts remain
// invisible to other transactions until this succeeds.
func (t *transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("badgerstore: committing transaction: %w", err)
	}
	t.txn = t.feed.store.db.NewTransaction(t.feed.writable)
	t.dirty = false
	return nil
}

func (t *transaction) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.txn.Discard()
	return nil
}
