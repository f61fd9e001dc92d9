package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bargalileo/internal/client"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stock_updates/"
}

func stockServer(t *testing.T, serve func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/stock_updates/" {
			http.NotFound(w, r)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
}

func TestFeedDeliversStockDeltas(t *testing.T) {
	srv := stockServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]any{
			"type":    "stock_update",
			"message": map[string]int{"product_id": 7, "delta": -2},
		})
		conn.WriteJSON(map[string]any{
			"type":    "stock_update",
			"message": map[string]int{"product_id": 7, "delta": 1},
		})
		time.Sleep(50 * time.Millisecond)
	})
	defer srv.Close()

	var (
		mu     sync.Mutex
		deltas []int
	)
	done := make(chan struct{})
	feed := &client.StockFeed{
		URL: wsURL(srv),
		Handler: func(productoID, delta int) {
			mu.Lock()
			deltas = append(deltas, delta)
			if len(deltas) == 2 {
				close(done)
			}
			mu.Unlock()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go feed.Run(ctx)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("deltas not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	if deltas[0] != -2 || deltas[1] != 1 {
		t.Fatalf("deltas %v", deltas)
	}
}

func TestFeedIgnoresOtherEventTypes(t *testing.T) {
	srv := stockServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]any{"type": "ping"})
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(map[string]any{
			"type":    "stock_update",
			"message": map[string]int{"product_id": 1, "delta": -1},
		})
		time.Sleep(50 * time.Millisecond)
	})
	defer srv.Close()

	got := make(chan int, 1)
	feed := &client.StockFeed{
		URL:     wsURL(srv),
		Handler: func(productoID, delta int) { got <- delta },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go feed.Run(ctx)

	select {
	case d := <-got:
		if d != -1 {
			t.Fatalf("delta %d", d)
		}
	case <-ctx.Done():
		t.Fatal("stock_update never delivered")
	}
}

func TestFeedSendsTerminalID(t *testing.T) {
	got := make(chan string, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Terminal-ID")
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	feed := &client.StockFeed{URL: wsURL(srv), TerminalID: "term-42"}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go feed.Run(ctx)

	select {
	case id := <-got:
		if id != "term-42" {
			t.Fatalf("X-Terminal-ID %q", id)
		}
	case <-ctx.Done():
		t.Fatal("handshake never arrived")
	}
}

func TestFeedStopsWithoutReconnectPolicy(t *testing.T) {
	srv := stockServer(t, func(conn *websocket.Conn) {})
	defer srv.Close()

	feed := &client.StockFeed{URL: wsURL(srv)}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := feed.Run(ctx); err == nil {
		t.Fatal("expected the dropped connection error")
	}
}

func TestFeedReconnectsAndResyncs(t *testing.T) {
	var conns int
	var mu sync.Mutex
	srv := stockServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		if n == 1 {
			return // drop the first connection immediately
		}
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	resynced := make(chan struct{}, 1)
	feed := &client.StockFeed{
		URL:       wsURL(srv),
		Reconnect: client.ReconnectPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond},
		OnResync: func() {
			select {
			case resynced <- struct{}{}:
			default:
			}
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go feed.Run(ctx)

	select {
	case <-resynced:
	case <-ctx.Done():
		t.Fatal("reconnect never resynced")
	}
}

func TestFeedStopsOnContextCancel(t *testing.T) {
	srv := stockServer(t, func(conn *websocket.Conn) {
		time.Sleep(2 * time.Second)
	})
	defer srv.Close()

	feed := &client.StockFeed{URL: wsURL(srv)}
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- feed.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("err %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
