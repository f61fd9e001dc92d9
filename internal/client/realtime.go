package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bargalileo/internal/domain"
	applog "bargalileo/internal/log"
)

// StockHandler receives stock-delta events pushed by the server whenever any
// terminal's mutation commits.
type StockHandler func(productoID, delta int)

// ReconnectPolicy bounds the retry behavior after the feed drops. The zero
// value means a single connection attempt and no retries, which is the core
// contract; deployments that need liveness across restarts opt in.
type ReconnectPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// StockFeed is the process-wide push subscription to /ws/stock_updates/.
// One feed per terminal; it fans in to whichever ledger is active.
type StockFeed struct {
	URL       string
	Handler   StockHandler
	Reconnect ReconnectPolicy

	// TerminalID is sent on the handshake so the server can leave this
	// terminal out of broadcasts for its own mutations.
	TerminalID string

	// OnResync fires after a successful reconnect. Missed deltas cannot be
	// replayed, so the owner must refresh its ledger from a full fetch.
	OnResync func()
}

// Run dials and consumes the feed until ctx is done or the connection drops
// past the reconnect budget. Connection errors are logged, never surfaced to
// the user: the UI simply stops receiving live updates.
func (f *StockFeed) Run(ctx context.Context) error {
	delay := f.baseDelay()
	var hdr http.Header
	if f.TerminalID != "" {
		hdr = http.Header{"X-Terminal-ID": []string{f.TerminalID}}
	}

	for attempt := 0; ; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.URL, hdr)
		if err != nil {
			applog.Fail("stock_feed.dial", err, map[string]any{"url": f.URL, "attempt": attempt})
			if !f.retry(ctx, attempt, &delay) {
				return err
			}
			continue
		}

		if attempt > 0 && f.OnResync != nil {
			f.OnResync()
		}
		delay = f.baseDelay()

		err = f.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		applog.Warn("stock_feed.closed", map[string]any{"err": err.Error()})
		if !f.retry(ctx, attempt, &delay) {
			return err
		}
	}
}

func (f *StockFeed) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var evt domain.StockEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			applog.Warn("stock_feed.bad_message", map[string]any{"err": err.Error()})
			continue
		}
		if evt.Type != domain.EventStockUpdate {
			continue
		}
		if f.Handler != nil {
			f.Handler(evt.Message.ProductID, evt.Message.Delta)
		}
	}
}

func (f *StockFeed) baseDelay() time.Duration {
	if f.Reconnect.BaseDelay > 0 {
		return f.Reconnect.BaseDelay
	}
	return time.Second
}

func (f *StockFeed) retry(ctx context.Context, attempt int, delay *time.Duration) bool {
	if attempt >= f.Reconnect.MaxAttempts {
		return false
	}
	t := time.NewTimer(*delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}
	*delay *= 2
	if f.Reconnect.MaxDelay > 0 && *delay > f.Reconnect.MaxDelay {
		*delay = f.Reconnect.MaxDelay
	}
	return true
}
