package doe

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"github.com/hailam/gamesearch/internal/xlog"
)

var storeLogger = xlog.Tagged("DOE")

// Store is the opaque key/value interface: read(key) -> node|nil,
// write(node), values() -> iter<node>, close(). Payloads are
// zstd-compressed before Write and decompressed on Read, since opening
// trees can grow to millions of persisted nodes.
type Store struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenStore opens (creating if absent) a badger-backed node store at dir,
// grounded on internal/storage/storage.go's NewStorage.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("doe: open store: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("doe: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		enc.Close()
		return nil, fmt.Errorf("doe: new zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the underlying database and codecs.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func keyBytes(key uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], key)
	return b[:]
}

// Read fetches the node stored under key, or (nil, nil) when the key is
// absent; any other read or decode failure is returned as an error.
func (s *Store) Read(key uint64) (*Node, error) {
	var n *Node
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyBytes(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(compressed []byte) error {
			raw, err := s.dec.DecodeAll(compressed, nil)
			if err != nil {
				return err
			}
			n = &Node{}
			return json.Unmarshal(raw, n)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("doe: read %d: %w", key, err)
	}
	return n, nil
}

// Write persists n under n.Key.
func (s *Store) Write(n *Node) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("doe: marshal node %d: %w", n.Key, err)
	}
	compressed := s.enc.EncodeAll(raw, nil)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyBytes(n.Key), compressed)
	})
	if err != nil {
		return fmt.Errorf("doe: write %d: %w", n.Key, err)
	}
	return nil
}

// Values iterates every persisted node, in key order, calling fn for each.
// Stops and returns fn's error if it returns non-nil.
func (s *Store) Values(fn func(*Node) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if len(item.Key()) != 8 {
				continue // the NextKey counter shares the keyspace; node keys are 8 bytes
			}
			err := item.Value(func(compressed []byte) error {
				raw, err := s.dec.DecodeAll(compressed, nil)
				if err != nil {
					return err
				}
				n := &Node{}
				if err := json.Unmarshal(raw, n); err != nil {
					return err
				}
				return fn(n)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// NextKey allocates the next unused node key by tracking a running
// counter persisted alongside the tree, so restarts never reuse a key.
func (s *Store) NextKey() (uint64, error) {
	var next uint64
	err := s.db.Update(func(txn *badger.Txn) error {
		const counterKey = "doe:next-key"
		item, err := txn.Get([]byte(counterKey))
		var cur uint64 = RootKey
		if err == nil {
			err = item.Value(func(v []byte) error {
				cur = binary.BigEndian.Uint64(v)
				return nil
			})
			if err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		next = cur + 1
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], next)
		return txn.Set([]byte(counterKey), b[:])
	})
	if err != nil {
		return 0, fmt.Errorf("doe: allocate key: %w", err)
	}
	return next, nil
}
