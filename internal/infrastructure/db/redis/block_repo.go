package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/infrastructure/db/dbutil"
	"github.com/redis/go-redis/v9"
)

const blocksHashKey = "blockStore:blocks"

type blockRepository struct {
	rdb *redis.Client
}

func NewBlockRepository(config ...interface{}) (domain.BlockRepository, error) {
	rdb, _, err := parseConfig(config...)
	if err != nil {
		return nil, err
	}
	return &blockRepository{rdb}, nil
}

func (r *blockRepository) AddBlock(ctx context.Context, block domain.Block) error {
	val, err := json.Marshal(dbutil.ToBlock(block))
	if err != nil {
		return fmt.Errorf("failed to marshal block %d: %v", block.Number, err)
	}
	// HSETNX is atomic, blocks are never overwritten.
	ok, err := r.rdb.HSetNX(
		ctx, blocksHashKey, strconv.FormatUint(block.Number, 10), val,
	).Result()
	if err != nil {
		return fmt.Errorf("failed to add block %d: %v", block.Number, err)
	}
	if !ok {
		return domain.ErrBlockAlreadyExists
	}
	return nil
}

func (r *blockRepository) GetBlock(ctx context.Context, number uint64) (*domain.Block, error) {
	val, err := r.rdb.HGet(ctx, blocksHashKey, strconv.FormatUint(number, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to get block %d: %v", number, err)
	}

	var record dbutil.Block
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("malformed block %d in storage: %v", number, err)
	}
	return record.ToDomain(), nil
}

func (r *blockRepository) Close() {
	// nolint:all
	r.rdb.Close()
}
