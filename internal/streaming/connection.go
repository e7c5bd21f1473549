package streaming

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/TrafficReport/analyzer/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 1024
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection owns the socket. A single writeLoop per socket serializes writes;
// stop is closed when that socket is replaced.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	stop   chan struct{}
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}
	closed bool

	wsURL  string
	secret string

	// replayed after reconnect
	hello []byte

	// first retry delay, doubled per failed attempt
	backoff time.Duration

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh:  make(chan []byte, sendChSize),
		ackCh:   make(chan streaming.AckMessage, ackChSize),
		done:    make(chan struct{}),
		backoff: time.Second,
		logger:  logger,
	}
}

func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.stop = stop
	c.mu.Unlock()

	go c.writeLoop(conn, stop)
	go c.readLoop(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data := <-c.sendCh:
			err := conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = conn.WriteMessage(ws.TextMessage, data)
			}
			if err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				// the next socket's writer picks it up
				c.requeue(data)
				go c.reconnect(conn)
				return
			}
		}
	}
}

func (c *connection) requeue(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping unsent message")
	}
}

func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces broken. Both loops of a broken socket may call it;
// only the first one to observe broken as current does any work.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	_ = c.conn.Close()
	c.conn = nil
	backoff := c.backoff
	c.mu.Unlock()

	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		stop := make(chan struct{})
		c.conn = conn
		c.stop = stop
		hello := c.hello
		c.mu.Unlock()

		if hello != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				err = conn.WriteMessage(ws.TextMessage, hello)
			}
			if err != nil {
				c.logger.Warn("Failed to replay hello after reconnect", "error", err)
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.writeLoop(conn, stop)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send is non-blocking and drops when the queue is full.
func (c *connection) send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
		return false
	}
}

func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
