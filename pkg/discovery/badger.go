package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/service"
)

// prefixService namespaces record keys: "svc:<uuid>" -> JSON Record.
const prefixService = "svc:"

func keyService(uuid string) []byte {
	return []byte(prefixService + uuid)
}

// BadgerStore persists records in an embedded BadgerDB, so that a
// separate process (the services command) can read what a running
// launcher registered.
type BadgerStore struct {
	db *badgerdb.DB
}

// NewBadgerStore opens (or creates) the database at path. An empty path
// opens an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	var opts badgerdb.Options
	if path == "" {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create discovery directory: %w", err)
		}
		opts = badgerdb.DefaultOptions(path)
	}

	db, err := badgerdb.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger discovery store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Name() string { return "badger" }

func (s *BadgerStore) RegisterService(ctx context.Context, inst *service.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewRecord(inst))
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyService(inst.UUID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", inst.Name(), err)
	}

	logger.DebugCtx(ctx, "registered service", logger.KeyRegistry, s.Name(), logger.KeyUUID, inst.UUID)
	return nil
}

func (s *BadgerStore) DeregisterService(ctx context.Context, inst *service.Instance) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(keyService(inst.UUID))
	})
	if err != nil {
		return fmt.Errorf("failed to deregister %s: %w", inst.Name(), err)
	}

	logger.DebugCtx(ctx, "deregistered service", logger.KeyRegistry, s.Name(), logger.KeyUUID, inst.UUID)
	return nil
}

func (s *BadgerStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixService)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var r Record
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				result = append(result, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortRecords(result)
	return result, nil
}

// Healthcheck verifies the database can serve a read transaction.
func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
