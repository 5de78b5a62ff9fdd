package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/infrastructure/db/dbutil"
)

type blockRepository struct {
	db *sql.DB
}

func NewBlockRepository(config ...interface{}) (domain.BlockRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open block repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &blockRepository{db}, nil
}

func (r *blockRepository) AddBlock(ctx context.Context, block domain.Block) error {
	record := dbutil.ToBlock(block)
	number, err := dbutil.ToInt64(record.Number)
	if err != nil {
		return fmt.Errorf("invalid block number: %w", err)
	}

	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertBlock, number, record.Root, record.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert block: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrBlockAlreadyExists
		}
		return nil
	})
}

func (r *blockRepository) GetBlock(ctx context.Context, number uint64) (*domain.Block, error) {
	num, err := dbutil.ToInt64(number)
	if err != nil {
		return nil, domain.ErrBlockNotFound
	}

	var record dbutil.Block
	var n int64
	err = r.db.QueryRowContext(ctx, selectBlock, num).Scan(&n, &record.Root, &record.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	record.Number = uint64(n)
	return record.ToDomain(), nil
}

func (r *blockRepository) Close() {
	// nolint:all
	r.db.Close()
}
