// Package store - локальное долговечное key/value хранилище с TTL поверх badger.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/exp/slog"
)

var ErrNotFound = errors.New("key not found")

// Stats - сводка по содержимому хранилища.
type Stats struct {
	ItemCount  int
	TotalSize  int64
	Categories map[string]int
}

// entry - то, что реально лежит в badger под ключом.
type entry struct {
	Category string `msgpack:"c"`
	Value    []byte `msgpack:"v"`
	StoredAt int64  `msgpack:"t"`
}

type options struct {
	inMemory bool
	syncW    bool
}

// Option настраивает открытие хранилища.
type Option func(*options)

// WithInMemory открывает хранилище без файлов на диске.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithSyncWrites включает fsync после каждой записи.
func WithSyncWrites() Option {
	return func(o *options) { o.syncW = true }
}

type Store struct {
	db  *badger.DB
	log *slog.Logger
}

func Open(path string, log *slog.Logger, opts ...Option) (*Store, error) {
	var cfg options
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	bOpts := badger.DefaultOptions(path)
	if cfg.inMemory {
		bOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	bOpts = bOpts.WithSyncWrites(cfg.syncW)
	bOpts.Logger = nil

	db, err := badger.Open(bOpts)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With(slog.String("component", "store")),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Store сохраняет value под key. ttl <= 0 - без срока жизни.
func (s *Store) Store(ctx context.Context, key string, value []byte, category string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msgpack.Marshal(&entry{
		Category: category,
		Value:    value,
		StoredAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи %s: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), raw)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("ошибка записи %s: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var e entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", key, err)
	}

	return e.Value, nil
}

// Remove удаляет key. Отсутствие ключа ошибкой не считается.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления %s: %w", key, err)
	}

	return nil
}

// Scan возвращает все значения с ключами, начинающимися с prefix.
func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)

	err := s.iterate(ctx, []byte(prefix), func(key string, e entry) {
		result[key] = e.Value
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Categories: make(map[string]int)}

	err := s.iterate(ctx, nil, func(_ string, e entry) {
		st.ItemCount++
		st.TotalSize += int64(len(e.Value))
		st.Categories[e.Category]++
	})
	if err != nil {
		return Stats{}, err
	}

	return st, nil
}

func (s *Store) iterate(ctx context.Context, prefix []byte, fn func(key string, e entry)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			key := string(item.KeyCopy(nil))

			var e entry
			err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &e)
			})
			if err != nil {
				s.log.Warn("Пропущена поврежденная запись", "key", key, "error", err)
				continue
			}

			fn(key, e)
		}

		return nil
	})
}
