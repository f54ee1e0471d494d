// Package storage provides persistent storage for engine session settings,
// an optional transposition-table snapshot, and an online tablebase-probe
// memoization cache. It is a convenience layer: deleting the store directory
// never affects engine correctness, only warm-start latency (§4P).
package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyOptions     = "options"
	keyTTSnapshot  = "tt_snapshot"
	probeKeyPrefix = "probe/"
)

// Options holds the engine configuration a restarted process restores on
// startup, mirroring the UCI options of §4L.
type Options struct {
	HashMB           int       `json:"hash_mb"`
	OwnBook          bool      `json:"own_book"`
	SyzygyPath       string    `json:"syzygy_path"`
	SyzygyProbeDepth int       `json:"syzygy_probe_depth"`
	MultiPV          int       `json:"multi_pv"`
	PersistHash      bool      `json:"persist_hash"`
	LastUsed         time.Time `json:"last_used"`
}

// DefaultOptions returns the engine's built-in defaults.
func DefaultOptions() *Options {
	return &Options{
		HashMB:           32,
		OwnBook:          true,
		SyzygyProbeDepth: 1,
		MultiPV:          1,
	}
}

// CachedProbe is a memoized tablebase lookup, keyed by FEN, so an online
// probe (§4Q) is never repeated for the same position within a session.
type CachedProbe struct {
	Found bool  `json:"found"`
	WDL   int8  `json:"wdl"`
	DTZ   int   `json:"dtz"`
	Stamp int64 `json:"stamp"`
}

// Storage wraps BadgerDB for persistent storage rooted in the per-user data
// directory returned by GetDatabaseDir.
type Storage struct {
	db *badger.DB
}

// NewStorage opens (creating if necessary) the on-disk store.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveOptions persists the engine's current session options.
func (s *Storage) SaveOptions(opts *Options) error {
	opts.LastUsed = time.Now()

	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOptions), data)
	})
}

// LoadOptions loads the last-persisted session options, returning defaults
// if none were saved.
func (s *Storage) LoadOptions() (*Options, error) {
	opts := DefaultOptions()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOptions))
		if err == badger.ErrKeyNotFound {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, opts)
		})
	})

	return opts, err
}

// SaveTTSnapshot persists a serialized transposition-table blob (see
// engine.Engine.SaveTTSnapshot), gated by the UCI PersistHash option.
func (s *Storage) SaveTTSnapshot(data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyTTSnapshot), data)
	})
}

// LoadTTSnapshot returns a previously saved transposition-table blob, or nil
// if none was saved.
func (s *Storage) LoadTTSnapshot() ([]byte, error) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyTTSnapshot))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})

	return data, err
}

// ClearTTSnapshot removes any persisted transposition-table blob.
func (s *Storage) ClearTTSnapshot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyTTSnapshot))
	})
}

// SaveProbe memoizes an online tablebase lookup by FEN.
func (s *Storage) SaveProbe(fen string, probe CachedProbe) error {
	probe.Stamp = time.Now().Unix()

	data, err := json.Marshal(probe)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(probeKeyPrefix+fen), data)
	})
}

// LoadProbe returns a memoized online probe result, if one exists.
func (s *Storage) LoadProbe(fen string) (CachedProbe, bool, error) {
	var probe CachedProbe
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(probeKeyPrefix + fen))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &probe)
		})
	})

	return probe, found, err
}
