package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxDepth is the depth of the trees committed by the child chain.
	MaxDepth = 16
	// NodeSize is the size in bytes of every sibling in a proof.
	NodeSize = common.HashLength
)

var (
	leafSalt = []byte{0x00}
	nodeSalt = []byte{0x01}

	// zeroHashes[i] is the root of an empty subtree of height i.
	zeroHashes = func() [MaxDepth + 1]common.Hash {
		var hashes [MaxDepth + 1]common.Hash
		hashes[0] = LeafHash(make([]byte, NodeSize))
		for i := 1; i <= MaxDepth; i++ {
			hashes[i] = NodeHash(hashes[i-1], hashes[i-1])
		}
		return hashes
	}()
)

// LeafHash returns the salted hash of a leaf.
func LeafHash(leaf []byte) common.Hash {
	return crypto.Keccak256Hash(leafSalt, leaf)
}

// NodeHash returns the salted hash of an inner node.
func NodeHash(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(nodeSalt, left[:], right[:])
}

// CheckMembership verifies that leaf is at the given index of the tree with
// the given root. The proof must hold exactly MaxDepth siblings, anything
// else yields false.
func CheckMembership(leaf []byte, index uint64, root common.Hash, proof []byte) bool {
	if len(proof) != MaxDepth*NodeSize {
		return false
	}
	if index >= uint64(1)<<MaxDepth {
		return false
	}

	computed := LeafHash(leaf)
	for i := 0; i < MaxDepth; i++ {
		sibling := common.BytesToHash(proof[i*NodeSize : (i+1)*NodeSize])
		if index&1 == 0 {
			computed = NodeHash(computed, sibling)
		} else {
			computed = NodeHash(sibling, computed)
		}
		index >>= 1
	}
	return computed == root
}

// Tree is a fixed depth merkle tree whose missing leaves are empty.
type Tree struct {
	levels [][]common.Hash
}

func NewTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) > 1<<MaxDepth {
		return nil, fmt.Errorf(
			"too many leaves, got %d max %d", len(leaves), 1<<MaxDepth,
		)
	}

	level := make([]common.Hash, 0, len(leaves))
	for _, leaf := range leaves {
		level = append(level, LeafHash(leaf))
	}

	levels := make([][]common.Hash, 0, MaxDepth+1)
	levels = append(levels, level)
	for height := 0; height < MaxDepth; height++ {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := zeroHashes[height]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, NodeHash(level[i], right))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels}, nil
}

func (t *Tree) Root() common.Hash {
	top := t.levels[MaxDepth]
	if len(top) == 0 {
		return zeroHashes[MaxDepth]
	}
	return top[0]
}

// Proof returns the concatenated siblings of the leaf at index, bottom up.
func (t *Tree) Proof(index uint64) ([]byte, error) {
	if index >= uint64(len(t.levels[0])) {
		return nil, fmt.Errorf(
			"leaf index %d out of range, tree has %d leaves", index, len(t.levels[0]),
		)
	}

	proof := make([]byte, 0, MaxDepth*NodeSize)
	for height := 0; height < MaxDepth; height++ {
		sibling := zeroHashes[height]
		siblingIndex := index ^ 1
		if siblingIndex < uint64(len(t.levels[height])) {
			sibling = t.levels[height][siblingIndex]
		}
		proof = append(proof, sibling[:]...)
		index >>= 1
	}
	return proof, nil
}
