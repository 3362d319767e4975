package pumpportal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-sniper/internal/observability"
)

// DefaultFeedURL is the public PumpPortal data stream.
const DefaultFeedURL = "wss://pumpportal.fun/api/data"

// ErrFeedClosed is returned by operations on a closed feed.
var ErrFeedClosed = errors.New("feed closed")

// FeedConfig configures feed connection behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize is the capacity of the Tokens channel.
	BufferSize int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		BufferSize:        1024,
	}
}

// FeedClient streams token creations from PumpPortal.
// Events published while disconnected are lost; the stream is not replayed.
type FeedClient struct {
	endpoint string
	config   FeedConfig
	log      logrus.FieldLogger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	tokens chan NewTokenMessage

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewFeedClient connects to endpoint and subscribes to token creations.
func NewFeedClient(ctx context.Context, endpoint string, config *FeedConfig, log logrus.FieldLogger) (*FeedClient, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultFeedConfig().BufferSize
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	c := &FeedClient{
		endpoint: endpoint,
		config:   cfg,
		log:      log.WithField("component", "pumpportal_feed"),
		tokens:   make(chan NewTokenMessage, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// Tokens returns the creation stream. It is closed by Close.
func (c *FeedClient) Tokens() <-chan NewTokenMessage {
	return c.tokens
}

// connect dials the endpoint and sends the subscription.
func (c *FeedClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(subscribeRequest{Method: "subscribeNewToken"}); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed.Load() {
		conn.Close()
		return ErrFeedClosed
	}
	c.conn = conn
	return nil
}

// Close closes the connection and the Tokens channel.
func (c *FeedClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.tokens)
	return nil
}

// readLoop reads messages and reconnects with exponential backoff on failure.
func (c *FeedClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.reconnecting.Swap(true) {
				c.wg.Add(1)
				go c.reconnect(reconnectDelay)

				reconnectDelay *= 2
				if reconnectDelay > c.config.MaxReconnectDelay {
					reconnectDelay = c.config.MaxReconnectDelay
				}
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.log.WithError(err).Warn("feed connection lost")
			c.dropConn(conn)
			continue
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// dropConn discards conn if it is still the current connection.
func (c *FeedClient) dropConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == conn {
		c.conn.Close()
		c.conn = nil
	}
}

// reconnect waits delay, then dials and resubscribes.
func (c *FeedClient) reconnect(delay time.Duration) {
	defer c.wg.Done()
	defer c.reconnecting.Store(false)

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	observability.RecordFeedReconnect()
	if err := c.connect(ctx); err != nil {
		if errors.Is(err, ErrFeedClosed) {
			return
		}
		// The read loop schedules the next attempt with a longer delay.
		c.log.WithError(err).WithField("delay", delay).Warn("feed reconnect failed")
		return
	}
	c.log.Info("feed reconnected")
}

// handleMessage decodes a frame and publishes creations.
func (c *FeedClient) handleMessage(message []byte) {
	var msg NewTokenMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		observability.RecordEventDropped("decode")
		c.log.WithError(err).Debug("undecodable feed frame")
		return
	}

	if !msg.IsCreate() {
		c.log.WithField("frame", string(message)).Debug("feed control frame")
		return
	}

	// Block until the consumer catches up; the buffer absorbs bursts.
	select {
	case c.tokens <- msg:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *FeedClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.log.WithError(err).Debug("feed ping failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}
