package repository

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/icloudbridge/bridge/internal/store"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps downloaded asset payloads on local disk.
type BlobStore struct {
	db *badger.DB
}

// OpenBlobStore opens the blob store at path. An empty path keeps every blob
// in memory.
func OpenBlobStore(path string) (*BlobStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger blob store: %w", err)
	}
	return &BlobStore{db: db}, nil
}

func blobKey(key store.AssetKey) []byte {
	return []byte("asset/" + key.String())
}

func (b *BlobStore) Get(key store.AssetKey) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBlobNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BlobStore) Has(key store.AssetKey) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blobKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *BlobStore) Put(key store.AssetKey, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(key), data)
	})
}

// CollectGarbage reclaims value log space. It is a no-op for an in-memory
// store and when nothing is left to rewrite.
func (b *BlobStore) CollectGarbage() error {
	if b.db.Opts().InMemory {
		return nil
	}
	err := b.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

func (b *BlobStore) Close() error {
	return b.db.Close()
}
