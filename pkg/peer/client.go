package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Client sends completion requests to a single peer over one TCP connection.
// The connection is opened lazily and re-opened after any failure.
// A Client is safe for concurrent use; requests are serialized.
type Client struct {
	addr      string
	ioTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewClient returns a client for addr without connecting.
// ioTimeout bounds dialing and each request round trip; 0 means no bound.
func NewClient(addr string, ioTimeout time.Duration) *Client {
	return &Client{addr: addr, ioTimeout: ioTimeout}
}

// Dial returns a client with an established connection to addr.
func Dial(ctx context.Context, addr string, ioTimeout time.Duration) (*Client, error) {
	c := NewClient(addr, ioTimeout)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Addr returns the peer address.
func (c *Client) Addr() string {
	return c.addr
}

// Complete asks the peer for completions of prefix and returns at most limit of them.
func (c *Client) Complete(ctx context.Context, prefix string, limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	raw, err := c.roundTrip(ctx, prefix)
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("%w: %s: %w", ErrPeerUnavailable, c.addr, err)
	}

	words := DecodeReply(raw)
	if limit >= 0 && len(words) > limit {
		words = words[:limit]
	}
	return words, nil
}

// Close closes the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.ioTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPeerUnavailable, err)
	}
	log.Debugf("Connected to peer %s", c.addr)
	c.conn = conn
	return nil
}

func (c *Client) reset() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) deadline(ctx context.Context) time.Time {
	var d time.Time
	if c.ioTimeout > 0 {
		d = time.Now().Add(c.ioTimeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}

// roundTrip writes one request and reads until the terminator or the end of the stream.
func (c *Client) roundTrip(ctx context.Context, prefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		return "", err
	}
	if _, err := io.WriteString(c.conn, EncodeRequest(prefix)); err != nil {
		return "", err
	}

	var reply strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			reply.Write(buf[:n])
			if strings.Contains(reply.String(), Terminator) {
				return reply.String(), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && reply.Len() > 0 {
				// the peer closed the stream; what arrived is the whole reply
				c.reset()
				return reply.String(), nil
			}
			return "", err
		}
	}
}
