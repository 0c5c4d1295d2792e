// Package ethereum implements the blockchain collaborator interfaces for
// Ethereum-compatible nodes. Point queries go over a JSON-RPC HTTP client;
// push subscriptions require a WebSocket endpoint and are reported as
// unsupported without one.
package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gabapcia/chainhead/internal/blockcache"
	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/finalstream"
	"github.com/gabapcia/chainhead/internal/headstream"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/resub"
	"github.com/gabapcia/chainhead/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/chainhead/internal/pkg/transport/websocket"
)

// methodNotFound is the JSON-RPC error code nodes return for RPCs they do not
// expose, e.g. eth_subscribe on providers without subscription support.
const methodNotFound = -32601

// Client talks to an Ethereum-compatible node. Safe for concurrent use.
type Client struct {
	conn   jsonrpc.Client
	hasher blocks.Hasher

	wsEndpoint string
	wsOpts     []websocket.Option
	wsMu       sync.Mutex
	ws         *websocket.Client
}

// Compile-time assertions that Client implements the consumer interfaces.
var (
	_ headstream.Blockchain  = (*Client)(nil)
	_ finalstream.Blockchain = (*Client)(nil)
	_ blockcache.Blockchain  = (*Client)(nil)
)

// ClientOption customizes the Ethereum client.
type ClientOption func(*Client)

// WithWebsocketEndpoint enables push subscriptions over the given WebSocket
// endpoint. Without it every subscribe attempt returns resub.ErrNotSupported.
func WithWebsocketEndpoint(endpoint string, opts ...websocket.Option) ClientOption {
	return func(c *Client) {
		c.wsEndpoint = endpoint
		c.wsOpts = opts
	}
}

// NewClient creates an Ethereum client over the given JSON-RPC connection.
// The hasher seals headers the node delivered without a content hash.
func NewClient(conn jsonrpc.Client, hasher blocks.Hasher, opts ...ClientOption) *Client {
	c := &Client{
		conn:   conn,
		hasher: hasher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close tears down the WebSocket connection, if one is open.
func (c *Client) Close() error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws == nil {
		return nil
	}
	err := c.ws.Close()
	c.ws = nil
	return err
}

// websocketClient returns a live WebSocket client, dialing a fresh connection
// when none is open or the previous one died. This is what lets a
// resubscribe attempt recover from a dropped connection.
func (c *Client) websocketClient(ctx context.Context) (*websocket.Client, error) {
	if c.wsEndpoint == "" {
		return nil, resub.ErrNotSupported
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws != nil && !c.ws.Closed() {
		return c.ws, nil
	}

	ws, err := websocket.Dial(ctx, c.wsEndpoint, c.wsOpts...)
	if err != nil {
		return nil, err
	}
	c.ws = ws
	return ws, nil
}

// BlockAt retrieves the block at the given selector with its transaction
// hashes, or nil when the node has no such block.
func (c *Client) BlockAt(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error) {
	var (
		data json.RawMessage
		err  error
	)
	if hash, byHash := blockHash(at); byHash {
		data, err = c.conn.Fetch(ctx, "eth_getBlockByHash", hash.Hex(), false)
	} else {
		data, err = c.conn.Fetch(ctx, "eth_getBlockByNumber", at.String(), false)
	}
	if err != nil {
		return nil, err
	}
	if isNull(data) {
		return nil, nil
	}

	var res blockResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}

	block, computedLocally, err := res.toMultiBlock(c.hasher)
	if err != nil {
		return nil, err
	}
	if computedLocally {
		logger.Error(ctx, "[report this bug] node returned a block without hash, hash computed locally",
			"block.number", block.Number(),
			"block.hash", block.Hash(),
		)
	}
	return &block, nil
}

// Logs retrieves all logs matching the filter.
func (c *Client) Logs(ctx context.Context, filter blocks.LogFilter) ([]blocks.Log, error) {
	data, err := c.conn.Fetch(ctx, "eth_getLogs", logFilterParams(filter))
	if err != nil {
		return nil, err
	}

	var res []logResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding logs: %w", err)
	}

	logs := make([]blocks.Log, len(res))
	for i, entry := range res {
		logs[i], err = entry.toLog()
		if err != nil {
			return nil, err
		}
	}
	return logs, nil
}

// SubscribeNewHeads opens a push subscription delivering new chain heads.
func (c *Client) SubscribeNewHeads(ctx context.Context) (resub.PushHandle[blocks.RawHeader], error) {
	sub, err := c.subscribe(ctx, "newHeads")
	if err != nil {
		return nil, err
	}
	return &pushHandle[blocks.RawHeader]{
		sub: sub,
		decode: func(payload json.RawMessage) (blocks.RawHeader, error) {
			var res headerResponse
			if err := json.Unmarshal(payload, &res); err != nil {
				return blocks.RawHeader{}, fmt.Errorf("decoding head notification: %w", err)
			}
			return res.toRawHeader()
		},
	}, nil
}

// SubscribeLogs opens a push subscription delivering logs matching the filter.
func (c *Client) SubscribeLogs(ctx context.Context, filter blocks.LogFilter) (resub.PushHandle[blocks.Log], error) {
	sub, err := c.subscribe(ctx, "logs", logFilterParams(filter))
	if err != nil {
		return nil, err
	}
	return &pushHandle[blocks.Log]{
		sub: sub,
		decode: func(payload json.RawMessage) (blocks.Log, error) {
			var res logResponse
			if err := json.Unmarshal(payload, &res); err != nil {
				return blocks.Log{}, fmt.Errorf("decoding log notification: %w", err)
			}
			return res.toLog()
		},
	}, nil
}

func (c *Client) subscribe(ctx context.Context, params ...any) (*websocket.Subscription, error) {
	ws, err := c.websocketClient(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := ws.Subscribe(ctx, params...)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == methodNotFound {
			return nil, fmt.Errorf("%w: %v", resub.ErrNotSupported, err)
		}
		return nil, err
	}
	return sub, nil
}

// pushHandle adapts a raw WebSocket subscription to the typed push-handle
// contract, translating a dead connection into the resubscribe sentinel.
type pushHandle[T any] struct {
	sub    *websocket.Subscription
	decode func(json.RawMessage) (T, error)
}

func (h *pushHandle[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	payload, err := h.sub.Recv(ctx)
	if err != nil {
		if errors.Is(err, websocket.ErrConnectionClosed) {
			return zero, resub.ErrClosed
		}
		return zero, err
	}
	return h.decode(payload)
}

func (h *pushHandle[T]) Unsubscribe(ctx context.Context) error {
	return h.sub.Unsubscribe(ctx)
}

func blockHash(at blocks.AtBlock) (blocks.Hash, bool) {
	id, ok := at.Identifier()
	if !ok {
		return blocks.Hash{}, false
	}
	return id.Hash()
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
