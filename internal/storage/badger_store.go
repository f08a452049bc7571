package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store with Badger DB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (Store, error) {
	opts := badger.DefaultOptions(filepath.Clean(path))
	opts.Logger = nil                         // disable badger logs for test clarity
	opts = opts.WithValueLogFileSize(1 << 20) // smaller value log for local dev
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func pageKey(key string) []byte {
	return []byte("page:" + key)
}

func viewsKey(id string) []byte {
	return []byte("views:" + id)
}

func (s *BadgerStore) SavePage(ctx context.Context, p *models.PageSnapshot) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return txn.Set(pageKey(p.Key), data)
	})
}

func (s *BadgerStore) GetPage(ctx context.Context, key string) (*models.PageSnapshot, error) {
	var out models.PageSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) DeletePage(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(pageKey(key))
	})
}

func (s *BadgerStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := readCounter(txn, viewsKey(id))
		if err != nil {
			return err
		}
		n = cur + 1
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n))
		return txn.Set(viewsKey(id), buf)
	})
	return n, err
}

func (s *BadgerStore) Views(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = readCounter(txn, viewsKey(id))
		return err
	})
	return n, err
}

func readCounter(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n int64
	err = item.Value(func(v []byte) error {
		if len(v) != 8 {
			return errors.New("corrupt counter")
		}
		n = int64(binary.BigEndian.Uint64(v))
		return nil
	})
	return n, err
}
