package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/infrastructure/db/dbutil"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const blockStoreDir = "blocks"

type blockRepository struct {
	store *badgerhold.Store
}

func NewBlockRepository(config ...interface{}) (domain.BlockRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, blockStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open block store: %s", err)
	}

	return &blockRepository{store}, nil
}

func (r *blockRepository) AddBlock(ctx context.Context, block domain.Block) error {
	record := dbutil.ToBlock(block)
	err := withRetry(func() error {
		return r.store.Insert(record.Number, record)
	})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return domain.ErrBlockAlreadyExists
	}
	return err
}

func (r *blockRepository) GetBlock(ctx context.Context, number uint64) (*domain.Block, error) {
	var record dbutil.Block
	err := r.store.Get(number, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	return record.ToDomain(), nil
}

func (r *blockRepository) Close() {
	// nolint:all
	r.store.Close()
}
