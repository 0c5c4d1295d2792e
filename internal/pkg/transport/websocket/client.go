// Package websocket provides a JSON-RPC 2.0 client over a WebSocket
// connection, adding the push-subscription surface (eth_subscribe style) that
// HTTP transports cannot offer. A single reader goroutine demultiplexes
// call replies by request id and subscription notifications by subscription
// id.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/chainhead/internal/pkg/x/chflow"
)

// ErrConnectionClosed indicates the underlying WebSocket connection is gone;
// in-flight calls and open subscriptions cannot recover.
var ErrConnectionClosed = errors.New("websocket connection closed")

// subscriptionBuffer is how many undelivered notifications a subscription
// holds before newer ones are dropped, keeping a slow consumer from stalling
// the connection reader.
const subscriptionBuffer = 128

// envelope covers both reply and notification frames.
type envelope struct {
	JsonRPC string            `json:"jsonrpc"`
	ID      *string           `json:"id"`
	Method  string            `json:"method"`
	Error   *jsonrpc.RPCError `json:"error"`
	Result  json.RawMessage   `json:"result"`
	Params  *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type reply struct {
	result json.RawMessage
	err    error
}

// Client is a JSON-RPC client over a single WebSocket connection. Safe for
// concurrent use. Once the connection drops the client is dead; callers
// reconnect by dialing a new one.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan reply
	subs    map[string]chan json.RawMessage

	closed    chan struct{}
	closeOnce sync.Once
}

type config struct {
	handshakeTimeout time.Duration
}

// Option customizes the WebSocket client.
type Option func(*config)

// WithHandshakeTimeout sets the WebSocket handshake deadline. Default: 10s.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		c.handshakeTimeout = d
	}
}

// Dial connects to the given WebSocket endpoint and starts the reader.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	cfg := config{handshakeTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.handshakeTimeout}
	conn, res, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	if res != nil && res.Body != nil {
		res.Body.Close()
	}

	c := &Client{
		conn:    conn,
		pending: make(map[string]chan reply),
		subs:    make(map[string]chan json.RawMessage),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears down the connection. Pending calls and open subscriptions
// observe ErrConnectionClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.shutdown()
	return err
}

// Closed reports whether the connection is gone. A closed client cannot be
// revived; dial a new one.
func (c *Client) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Fetch sends a JSON-RPC request over the connection and waits for the
// matching reply. It satisfies the same contract as the HTTP client's Fetch.
func (c *Client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := uuid.NewString()
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	replyCh := make(chan reply, 1)
	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	default:
	}
	c.pending[id] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, body)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	r, ok := chflow.Receive(ctx, replyCh)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrConnectionClosed
	}
	return r.result, r.err
}

// Subscribe issues an eth_subscribe call and returns the live subscription.
func (c *Client) Subscribe(ctx context.Context, params ...any) (*Subscription, error) {
	result, err := c.Fetch(ctx, "eth_subscribe", params...)
	if err != nil {
		return nil, err
	}

	var id string
	if err := json.Unmarshal(result, &id); err != nil {
		return nil, fmt.Errorf("decoding subscription id: %w", err)
	}

	ch := make(chan json.RawMessage, subscriptionBuffer)
	c.mu.Lock()
	c.subs[id] = ch
	c.mu.Unlock()

	return &Subscription{client: c, id: id, ch: ch}, nil
}

// readLoop is the single connection reader. It dispatches replies to waiting
// calls and notifications to subscription channels, and shuts the client down
// on the first read error.
func (c *Client) readLoop() {
	defer c.shutdown()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn(context.Background(), "discarding unparseable websocket frame", "error", err)
			continue
		}

		// Dispatch while holding the lock: every close of a reply or
		// subscription channel also happens under it, so a channel looked up
		// here cannot be closed before the send below.
		switch {
		case env.ID != nil:
			c.mu.Lock()
			if replyCh, ok := c.pending[*env.ID]; ok {
				r := reply{result: env.Result}
				if env.Error != nil {
					r.err = env.Error
				}
				delete(c.pending, *env.ID)
				replyCh <- r
			}
			c.mu.Unlock()

		case env.Params != nil:
			c.mu.Lock()
			if ch, ok := c.subs[env.Params.Subscription]; ok {
				select {
				case ch <- env.Params.Result:
				default:
					logger.Warn(context.Background(), "subscription buffer full, dropping notification",
						"subscription_id", env.Params.Subscription,
					)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.mu.Unlock()
	})
}

// Subscription is one live push subscription on a Client.
type Subscription struct {
	client *Client
	id     string
	ch     chan json.RawMessage
}

// ID returns the server-assigned subscription id.
func (s *Subscription) ID() string {
	return s.id
}

// Recv blocks until the next notification payload. It returns
// ErrConnectionClosed once the connection is gone.
func (s *Subscription) Recv(ctx context.Context) (json.RawMessage, error) {
	payload, ok := chflow.Receive(ctx, s.ch)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrConnectionClosed
	}
	return payload, nil
}

// Unsubscribe issues eth_unsubscribe and stops delivery. The subscription
// must not be used afterwards.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	s.client.mu.Lock()
	if _, ok := s.client.subs[s.id]; ok {
		close(s.client.subs[s.id])
		delete(s.client.subs, s.id)
	}
	s.client.mu.Unlock()

	_, err := s.client.Fetch(ctx, "eth_unsubscribe", s.id)
	if err != nil && !errors.Is(err, ErrConnectionClosed) {
		return err
	}
	return nil
}
