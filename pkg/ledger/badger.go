package ledger

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures a BadgerDB-backed ledger.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	InMemory bool

	// Logger receives badger warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a ledger stored in BadgerDB.
func NewBadger(opts BadgerOptions) (*Ledger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("ledger: BadgerOptions.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(slogLogger{logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open badger: %w", err)
	}
	return newLedger(&badgerBackend{db: db}), nil
}

type badgerBackend struct {
	db *badger.DB
}

func (b *badgerBackend) get(key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errNoKey
	}
	return val, err
}

func (b *badgerBackend) set(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *badgerBackend) del(key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *badgerBackend) scan(prefix string) iter.Seq2[kvPair, error] {
	p := []byte(prefix)
	return func(yield func(kvPair, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = p
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(kvPair{}, err) {
						return nil
					}
					continue
				}
				if !yield(kvPair{key: string(item.KeyCopy(nil)), value: val}, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(kvPair{}, err)
		}
	}
}

func (b *badgerBackend) setBatch(pairs []kvPair) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, p := range pairs {
		if err := wb.Set([]byte(p.key), p.value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *badgerBackend) close() error {
	return b.db.Close()
}

// slogLogger routes badger output to slog. Info and debug messages are
// logged at debug level.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Errorf(f string, v ...any)   { s.l.Error(badgerMsg(f, v)) }
func (s slogLogger) Warningf(f string, v ...any) { s.l.Warn(badgerMsg(f, v)) }
func (s slogLogger) Infof(f string, v ...any)    { s.l.Debug(badgerMsg(f, v)) }
func (s slogLogger) Debugf(f string, v ...any)   { s.l.Debug(badgerMsg(f, v)) }

func badgerMsg(f string, v []any) string {
	return "badger: " + strings.TrimSpace(fmt.Sprintf(f, v...))
}
