package domain

import (
	"context"
	"errors"
)

var (
	ErrBlockNotFound      = errors.New("block not found")
	ErrBlockAlreadyExists = errors.New("block already exists")
)

type BlockRepository interface {
	AddBlock(ctx context.Context, block Block) error
	// GetBlock fails with ErrBlockNotFound if the block is unknown
	GetBlock(ctx context.Context, number uint64) (*Block, error)
	Close()
}
