package domain

import "github.com/ethereum/go-ethereum/common"

// Block is a child chain block whose merkle root is committed to the root chain.
type Block struct {
	Number    uint64
	Root      common.Hash
	Timestamp int64
}
