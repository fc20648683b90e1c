package badger

import (
	"encoding/json"
	"strings"

	"github.com/dgraph-io/badger/v2"
	"github.com/go-faster/errors"
	"github.com/vipnode/junior/kv/store"
)

const itemPrefix = "kv:item:"

func itemKey(key string) []byte {
	return []byte(itemPrefix + key)
}

// Open returns a store.Store implementation using Badger as the storage
// driver, migrated to the latest version. The store should be .Close()'d
// after use.
func Open(opts badger.Options) (*badgerStore, error) {
	db, err := badger.Open(opts.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	if err := MigrateLatest(db, opts.Dir); err != nil {
		db.Close()
		return nil, err
	}
	return &badgerStore{db: db}, nil
}

// OpenDir opens a store at dir with default options.
func OpenDir(dir string) (*badgerStore, error) {
	return Open(badger.DefaultOptions(dir))
}

var _ store.Store = &badgerStore{}

type badgerStore struct {
	db *badger.DB
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func (s *badgerStore) Get(key string) (json.RawMessage, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		return getItem(txn, itemKey(key), &value)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %q", key)
	}
	return json.RawMessage(value), nil
}

func (s *badgerStore) Set(key string, value json.RawMessage) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return setItem(txn, itemKey(key), []byte(value))
	})
	if err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

func (s *badgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		k := itemKey(key)
		if !hasKey(txn, k) {
			return store.ErrNotFound
		}
		return txn.Delete(k)
	})
	if err == nil || err == store.ErrNotFound {
		return err
	}
	return errors.Wrapf(err, "delete %q", key)
}

func (s *badgerStore) Keys(prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		return loopKeys(txn, itemKey(prefix), func(k []byte) error {
			keys = append(keys, strings.TrimPrefix(string(k), itemPrefix))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "keys %q", prefix)
	}
	// Badger iterates in byte order, which is already sorted.
	return keys, nil
}
