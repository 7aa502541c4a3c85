package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeBinanceMiniTicker(t *testing.T) {
	msg := []byte(`{"stream":"btcusdt@miniTicker","data":{"e":"24hrMiniTicker","E":1700000000123,"s":"BTCUSDT","c":"42000.50","o":"41000","h":"42500","l":"40900","v":"1000","q":"42000000"}}`)

	tickers, err := decodeBinanceMiniTicker(msg)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, 42000.50, tickers[0].LastPrice)
	assert.Equal(t, int64(1700000000123), tickers[0].Time)
}

func TestDecodeBybitTicker(t *testing.T) {
	msg := []byte(`{"topic":"tickers.ETHUSDT","ts":1700000000456,"type":"snapshot","data":{"symbol":"ETHUSDT","lastPrice":"2200.25"}}`)
	tickers, err := decodeBybitTicker(msg)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, "ETHUSDT", tickers[0].Symbol)
	assert.Equal(t, 2200.25, tickers[0].LastPrice)

	// Acks are ignored.
	tickers, err = decodeBybitTicker([]byte(`{"success":true,"ret_msg":"subscribe","op":"subscribe"}`))
	require.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestTickerStream_Binance(t *testing.T) {
	upgrader := websocket.Upgrader{}
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case paths <- r.URL.RequestURI():
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"stream":"btcusdt@miniTicker","data":{"E":1700000000000,"s":"BTCUSDT","c":"42000"}}`))
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream := NewBinanceTickerStream(wsURL, zap.NewNop())

	got := make(chan float64, 1)
	stream.OnPriceUpdate(func(pair string, price float64, at time.Time) {
		if pair == "BTCUSDT" {
			select {
			case got <- price:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx, []string{"BTCUSDT", "ETHUSDT"}) }()

	select {
	case price := <-got:
		assert.Equal(t, 42000.0, price)
	case <-time.After(3 * time.Second):
		t.Fatal("no price received")
	}
	assert.Equal(t, "/stream?streams=btcusdt@miniTicker/ethusdt@miniTicker", <-paths)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestTickerStream_RequiresPairs(t *testing.T) {
	stream := NewBybitTickerStream("ws://127.0.0.1:1", zap.NewNop())
	assert.Error(t, stream.Run(context.Background(), nil))
}
