package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

const BinanceWSURL = "wss://stream.binance.com:9443"

// TickerStream follows last prices over a websocket and reconnects when the
// connection drops.
type TickerStream struct {
	url       func(pairs []string) string
	subscribe func(conn *websocket.Conn, pairs []string) error
	decode    func(msg []byte) ([]domain.Ticker, error)
	keepalive []byte
	logger    *zap.Logger

	ReconnectDelay time.Duration
	PingInterval   time.Duration

	mu        sync.Mutex
	callbacks []func(pair string, price float64, at time.Time)
}

// NewBinanceTickerStream uses the combined miniTicker stream; the pair list
// is part of the URL.
func NewBinanceTickerStream(baseURL string, logger *zap.Logger) *TickerStream {
	if baseURL == "" {
		baseURL = BinanceWSURL
	}
	return &TickerStream{
		url: func(pairs []string) string {
			streams := make([]string, len(pairs))
			for i, p := range pairs {
				streams[i] = strings.ToLower(p) + "@miniTicker"
			}
			return strings.TrimRight(baseURL, "/") + "/stream?streams=" + strings.Join(streams, "/")
		},
		decode:         decodeBinanceMiniTicker,
		logger:         logger,
		ReconnectDelay: 5 * time.Second,
	}
}

// NewBybitTickerStream subscribes to tickers.<PAIR> topics and pings every
// 20s, which Bybit requires to keep the socket open.
func NewBybitTickerStream(wsURL string, logger *zap.Logger) *TickerStream {
	if wsURL == "" {
		wsURL = BybitWSURL
	}
	return &TickerStream{
		url: func([]string) string { return wsURL },
		subscribe: func(conn *websocket.Conn, pairs []string) error {
			args := make([]string, len(pairs))
			for i, p := range pairs {
				args[i] = "tickers." + p
			}
			return conn.WriteJSON(map[string]interface{}{"op": "subscribe", "args": args})
		},
		decode:         decodeBybitTicker,
		keepalive:      []byte(`{"op":"ping"}`),
		logger:         logger,
		ReconnectDelay: 5 * time.Second,
		PingInterval:   20 * time.Second,
	}
}

func (s *TickerStream) OnPriceUpdate(callback func(pair string, price float64, at time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// Run blocks until ctx is cancelled.
func (s *TickerStream) Run(ctx context.Context, pairs []string) error {
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs to stream")
	}
	for {
		err := s.runOnce(ctx, pairs)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("Ticker stream disconnected", zap.Error(err), zap.Duration("retry_in", s.ReconnectDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.ReconnectDelay):
		}
	}
}

func (s *TickerStream) runOnce(ctx context.Context, pairs []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url(pairs), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if s.subscribe != nil {
		if err := s.subscribe(conn, pairs); err != nil {
			return err
		}
	}
	s.logger.Info("Ticker stream connected", zap.Strings("pairs", pairs))

	done := make(chan struct{})
	defer close(done)
	go func() {
		var tick <-chan time.Time
		if s.keepalive != nil && s.PingInterval > 0 {
			t := time.NewTicker(s.PingInterval)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-tick:
				if err := conn.WriteMessage(websocket.TextMessage, s.keepalive); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		tickers, err := s.decode(message)
		if err != nil {
			s.logger.Debug("Ticker message skipped", zap.Error(err))
			continue
		}
		s.dispatch(tickers)
	}
}

func (s *TickerStream) dispatch(tickers []domain.Ticker) {
	if len(tickers) == 0 {
		return
	}
	s.mu.Lock()
	callbacks := make([]func(string, float64, time.Time), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, t := range tickers {
		for _, cb := range callbacks {
			cb(t.Symbol, t.LastPrice, time.UnixMilli(t.Time))
		}
	}
}

func decodeBinanceMiniTicker(msg []byte) ([]domain.Ticker, error) {
	var event struct {
		Stream string `json:"stream"`
		Data   struct {
			EventTime int64  `json:"E"`
			Symbol    string `json:"s"`
			Close     string `json:"c"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		return nil, err
	}
	if event.Data.Symbol == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(event.Data.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("bad price %q for %s", event.Data.Close, event.Data.Symbol)
	}
	return []domain.Ticker{{
		Symbol:    event.Data.Symbol,
		LastPrice: price,
		Time:      event.Data.EventTime,
	}}, nil
}

func decodeBybitTicker(msg []byte) ([]domain.Ticker, error) {
	var event struct {
		Topic string `json:"topic"`
		Ts    int64  `json:"ts"`
		Data  struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		return nil, err
	}
	// Subscription acks and pongs carry no topic.
	if !strings.HasPrefix(event.Topic, "tickers.") || event.Data.LastPrice == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(event.Data.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("bad price %q for %s", event.Data.LastPrice, event.Data.Symbol)
	}
	symbol := event.Data.Symbol
	if symbol == "" {
		symbol = strings.TrimPrefix(event.Topic, "tickers.")
	}
	return []domain.Ticker{{Symbol: symbol, LastPrice: price, Time: event.Ts}}, nil
}
