package chainstate

import (
	"strconv"
	"sync/atomic"
)

// Block is the reference to the last block known to the wallet.
type Block struct {
	ID     uint64 `json:"id"     yaml:"id"`
	Height int32  `json:"height" yaml:"height"`
}

// IDString returns block id in the unsigned decimal form used by the node API.
func (b Block) IDString() string {
	return strconv.FormatUint(b.ID, 10)
}

// Reference holds the process wide last known block.
// It is safe to read and write from many goroutines, the last write wins.
type Reference struct {
	blk atomic.Pointer[Block]
}

// New creates an empty Reference.
func New() *Reference {
	return &Reference{}
}

// Set replaces the last known block.
func (r *Reference) Set(b Block) {
	r.blk.Store(&b)
}

// LastBlock returns the last known block and true if any block was set.
func (r *Reference) LastBlock() (Block, bool) {
	b := r.blk.Load()
	if b == nil {
		return Block{}, false
	}
	return *b, true
}

// Height returns the last known height or zero if no block was set yet.
func (r *Reference) Height() int32 {
	b, _ := r.LastBlock()
	return b.Height
}

// Clear forgets the last known block.
func (r *Reference) Clear() {
	r.blk.Store(nil)
}
