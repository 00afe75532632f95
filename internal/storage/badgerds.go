package storage

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// badgerDatastore implements Datastore on top of a Badger LSM-tree, giving
// Holdfast a persistent backing store with the same interface as
// memDatastore. This is the backend boxo and go-ipfs-pinner style IPFS
// nodes use under their blockstores; Holdfast wires it in directly rather
// than inventing its own on-disk format.
type badgerDatastore struct {
	db *badger.DB
}

// OpenBadger opens (creating if necessary) a Badger database at dir and
// returns it wrapped as a Datastore.
func OpenBadger(dir string) (Datastore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerDatastore{db: db}, nil
}

func (b *badgerDatastore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *badgerDatastore) Put(key []byte, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerDatastore) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Scan iterates keys with the given prefix in ascending order. Badger's
// iterator already walks keys in sorted order, so no separate sort step is
// needed here the way memDatastore needs one over its map.
func (b *badgerDatastore) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			cont := true
			err := item.Value(func(val []byte) error {
				cont = fn(item.KeyCopy(nil), append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
			if !cont {
				break
			}
		}
		return nil
	})
}

func (b *badgerDatastore) Close() error {
	return b.db.Close()
}
