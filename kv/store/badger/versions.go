package badger

import (
	"bytes"

	"github.com/dgraph-io/badger/v2"
)

const dbVersion = 1

// internalPrefix is shared by every key this store writes: items, the
// version, and anything added later.
var internalPrefix = []byte("kv:")

var migrations = [dbVersion]MigrationStep{
	// Version 0 -> 1 (items moved under itemPrefix)
	func(txn *badger.Txn) error {
		if err := checkVersion(txn, 0); err != nil {
			return err
		}
		if err := moveBareKeys(txn); err != nil {
			return err
		}
		return setVersion(txn, 1)
	},
}

// moveBareKeys moves keys written without a prefix, as unversioned databases
// did, under itemPrefix. Values are already in the item encoding.
func moveBareKeys(txn *badger.Txn) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	var bare [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		if k := it.Item().Key(); !bytes.HasPrefix(k, internalPrefix) {
			bare = append(bare, it.Item().KeyCopy(nil))
		}
	}
	it.Close()

	for _, k := range bare {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(itemKey(string(k)), val); err != nil {
			return err
		}
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	if len(bare) > 0 {
		logger.Infof("Moved %d unprefixed keys under %q", len(bare), itemPrefix)
	}
	return nil
}
