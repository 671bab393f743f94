package basestation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"skywatch/internal/sbs"
)

// State describes where the client is in its connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateWaiting means the last attempt failed and the client is backing
	// off before retrying. Cause carries the failure.
	StateWaiting State = "waiting"
	// StateFailed means the client gave up (bad address, retries exhausted).
	StateFailed State = "failed"
)

// Status is a point-in-time view of the client, safe to poll from any
// goroutine.
type Status struct {
	State          State
	Cause          string
	ConnectedSince time.Time
	Lines          uint64
	Messages       uint64
	Reconnects     uint64
}

// Client streams BaseStation (SBS-1) text messages from a TCP feed such as
// dump1090's port 30003 output. Reads on a connection are strictly
// sequential: every line completed by a read is decoded and delivered before
// the next read is issued.
type Client struct {
	addr         string
	maxRetries   int
	retryBackoff time.Duration

	conn   net.Conn
	framer sbs.Framer

	mtx    sync.Mutex
	status Status
}

func NewClient(addr string) *Client {
	return &Client{
		addr:         addr,
		maxRetries:   -1, // -1 means retry forever
		retryBackoff: 1 * time.Second,
		status:       Status{State: StateDisconnected},
	}
}

// Status returns a copy of the current connection status.
func (c *Client) Status() Status {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.status
}

func (c *Client) setState(state State, cause string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.status.State = state
	c.status.Cause = cause
	if state == StateConnected {
		c.status.ConnectedSince = time.Now()
	} else {
		c.status.ConnectedSince = time.Time{}
	}
}

func (c *Client) countLine() {
	c.mtx.Lock()
	c.status.Lines++
	c.mtx.Unlock()
}

func (c *Client) countMessage() {
	c.mtx.Lock()
	c.status.Messages++
	c.mtx.Unlock()
}

func (c *Client) countReconnect() {
	c.mtx.Lock()
	c.status.Reconnects++
	c.mtx.Unlock()
}

// connect establishes the TCP connection. The feed has no handshake; data
// starts flowing as soon as the connection is up.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout: 5 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}

	c.mtx.Lock()
	c.conn = conn
	c.mtx.Unlock()
	return conn, nil
}

// StreamMessages connects and delivers decoded messages to messageChan until
// the context is cancelled. Lost connections are re-established with capped
// exponential backoff; the Waiting status and its cause are observable
// between attempts. Lines that do not decode as MSG records are counted and
// dropped.
func (c *Client) StreamMessages(ctx context.Context, messageChan chan<- *sbs.Message) error {
	if _, _, err := net.SplitHostPort(c.addr); err != nil {
		err = fmt.Errorf("invalid feed address %q: %w", c.addr, err)
		c.setState(StateFailed, err.Error())
		return err
	}

	retryCount := 0
	backoff := c.retryBackoff

	for {
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected, "cancelled")
			return ctx.Err()
		default:
		}

		c.setState(StateConnecting, "")
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateDisconnected, "cancelled")
				return ctx.Err()
			}
			retryCount++
			if c.maxRetries >= 0 && retryCount > c.maxRetries {
				err = fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, err)
				c.setState(StateFailed, err.Error())
				return err
			}
			c.setState(StateWaiting, err.Error())
			slog.Warn("Failed to connect to feed", "addr", c.addr, "retry", retryCount, "error", err)
			select {
			case <-ctx.Done():
				c.setState(StateDisconnected, "cancelled")
				return ctx.Err()
			case <-time.After(backoff):
			}
			// Exponential backoff: 1s, 2s, 4s, 8s, max 30s
			backoff = backoff * 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			continue
		}
		retryCount = 0
		backoff = c.retryBackoff
		c.setState(StateConnected, "")
		slog.Info("Connected to feed", "addr", c.addr)

		err = c.readLines(ctx, conn, messageChan)
		if ctx.Err() != nil {
			c.closeConnection()
			c.setState(StateDisconnected, "cancelled")
			return ctx.Err()
		}

		// Connection dropped. Discard any trailing partial line, surface
		// the cause, and go back around to reconnect.
		slog.Warn("Feed connection lost, reconnecting", "error", err)
		c.closeConnection()
		c.setState(StateDisconnected, err.Error())
		c.countReconnect()
	}
}

// readLines is the per-connection receive loop. It returns only when the
// connection is unusable or the context is cancelled. The connection is
// passed in so a concurrent Close cannot pull it out from under a read.
func (c *Client) readLines(ctx context.Context, conn net.Conn, messageChan chan<- *sbs.Message) error {
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Bounded reads so cancellation is noticed on an idle feed.
		if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range c.framer.Push(buf[:n]) {
				c.countLine()
				msg, ok := sbs.ParseMessage(line)
				if !ok {
					// Expected noise: status lines, hellos, truncated junk.
					continue
				}
				select {
				case messageChan <- msg:
					c.countMessage()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if err == io.EOF {
				return fmt.Errorf("connection closed")
			}
			return fmt.Errorf("read failed: %w", err)
		}
	}
}

// closeConnection tears down the connection and drops any buffered partial
// line; a fragment cut off mid-stream is never emitted. Only the stream
// goroutine calls this, so the framer is never reset under a concurrent Push.
func (c *Client) closeConnection() {
	c.takeConn()
	c.framer.Reset()
}

func (c *Client) takeConn() {
	c.mtx.Lock()
	conn := c.conn
	c.conn = nil
	c.mtx.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Close unblocks any outstanding read by closing the connection. The caller
// cancels the StreamMessages context first; the stream goroutine finishes
// its own teardown.
func (c *Client) Close() error {
	c.takeConn()
	c.setState(StateDisconnected, "closed")
	return nil
}
