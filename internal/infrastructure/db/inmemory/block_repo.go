package inmemorydb

import (
	"context"
	"sync"

	"github.com/childchain/exitd/internal/core/domain"
)

type blockRepository struct {
	lock   sync.RWMutex
	blocks map[uint64]domain.Block
}

func NewBlockRepository(_ ...interface{}) (domain.BlockRepository, error) {
	return &blockRepository{
		blocks: make(map[uint64]domain.Block),
	}, nil
}

func (r *blockRepository) AddBlock(_ context.Context, block domain.Block) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.blocks[block.Number]; ok {
		return domain.ErrBlockAlreadyExists
	}
	r.blocks[block.Number] = block
	return nil
}

func (r *blockRepository) GetBlock(_ context.Context, number uint64) (*domain.Block, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	block, ok := r.blocks[number]
	if !ok {
		return nil, domain.ErrBlockNotFound
	}
	return &block, nil
}

func (r *blockRepository) Close() {}
