package headstream

import (
	"context"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/resub"
)

// Blockchain is the RPC surface consumed by the chain-head streams.
//
// BlockAt performs a single-shot fetch and returns nil (with a nil error)
// when the node has no block at the given selector. Fetched blocks arrive
// already sealed. The subscription operations open push channels over which
// the node proactively delivers new items; headers pushed over them may lack
// their content hash and are sealed by the stream.
type Blockchain interface {
	// BlockAt retrieves the block at the given selector, or nil when the
	// node has no such block.
	BlockAt(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error)

	// SubscribeNewHeads opens a push subscription delivering new chain heads.
	SubscribeNewHeads(ctx context.Context) (resub.PushHandle[blocks.RawHeader], error)

	// SubscribeLogs opens a push subscription delivering logs matching the filter.
	SubscribeLogs(ctx context.Context, filter blocks.LogFilter) (resub.PushHandle[blocks.Log], error)

	// Logs retrieves all logs matching the filter.
	Logs(ctx context.Context, filter blocks.LogFilter) ([]blocks.Log, error)
}
