package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

const (
	reconnectBase = 1 * time.Second
	reconnectMax  = 30 * time.Second

	streamBuffer = 16
)

// streamEvent is the wire envelope for websocket feed messages.
type streamEvent struct {
	Type        string            `json:"type"`
	Transaction types.Transaction `json:"transaction"`
}

// WebsocketStream subscribes to the backend's live transaction feed over a
// websocket. Connection drops are retried with exponential backoff; the
// events channel survives reconnects and closes only on Close or context
// cancellation.
type WebsocketStream struct {
	url     string
	onError func(error)
	dialer  *websocket.Dialer

	events chan types.Transaction
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocketStream creates a stream for the given ws:// or wss:// URL.
// onError receives connection and decode errors and may be nil.
func NewWebsocketStream(url string, onError func(error)) *WebsocketStream {
	return &WebsocketStream{
		url:     url,
		onError: onError,
		dialer:  websocket.DefaultDialer,
		events:  make(chan types.Transaction, streamBuffer),
		closed:  make(chan struct{}),
	}
}

// Start launches the subscription loop.
func (s *WebsocketStream) Start(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("stream URL not configured")
	}
	go s.run(ctx)
	return nil
}

// Events returns the channel delivering live transactions.
func (s *WebsocketStream) Events() <-chan types.Transaction {
	return s.events
}

// Close tears down the connection and stops reconnecting.
func (s *WebsocketStream) Close() error {
	s.once.Do(func() { close(s.closed) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *WebsocketStream) run(ctx context.Context) {
	defer close(s.events)

	backoff := reconnectBase

	for {
		if s.done(ctx) {
			return
		}

		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.reportError(fmt.Errorf("failed to connect to transaction stream: %w", err))
			if !s.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		backoff = reconnectBase
		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}
}

// readLoop consumes messages until the connection fails or the stream is
// closed.
func (s *WebsocketStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !s.done(ctx) {
				s.reportError(fmt.Errorf("transaction stream read failed: %w", err))
			}
			return
		}

		var event streamEvent
		if err := json.Unmarshal(message, &event); err != nil {
			s.reportError(fmt.Errorf("failed to decode stream event: %w", err))
			continue
		}
		if event.Transaction.Hash == "" {
			continue
		}

		select {
		case s.events <- event.Transaction:
		case <-s.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *WebsocketStream) done(ctx context.Context) bool {
	select {
	case <-s.closed:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *WebsocketStream) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.closed:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *WebsocketStream) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > reconnectMax {
		return reconnectMax
	}
	return next
}
