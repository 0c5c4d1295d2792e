package finalstream

import (
	"context"

	"github.com/gabapcia/chainhead/internal/blocks"
)

// Blockchain is the RPC surface consumed by the finalized-block stream.
// The observed protocol has no push channel for finality, so the stream is
// poll-only by construction.
type Blockchain interface {
	// BlockAt retrieves the block at the given selector, or nil when the
	// node has no such block.
	BlockAt(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error)
}
