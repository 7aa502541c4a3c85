package domain

import (
	"context"
	"time"
)

// MarketData is the read-only market client. Candles are returned oldest first.
type MarketData interface {
	GetCandles(ctx context.Context, pair, interval string, limit int) ([]Candle, error)
	GetPrice(ctx context.Context, pair string) (float64, error)
	GetPrices(ctx context.Context, pairs []string) (map[string]float64, error)
	Ping(ctx context.Context) error
}

// PriceStream pushes live prices as they arrive.
type PriceStream interface {
	OnPriceUpdate(callback func(pair string, price float64, at time.Time))
	Run(ctx context.Context, pairs []string) error
}

// PositionRepository defines storage operations for simulated positions.
type PositionRepository interface {
	InsertPosition(ctx context.Context, pos *Position) (string, error)
	FetchOpenPositions(ctx context.Context) ([]*Position, error)
	UpdatePosition(ctx context.Context, id string, fields CloseFields) error
	UpdateStopLoss(ctx context.Context, id string, stopLoss float64, breakeven bool) error
	ListPositions(ctx context.Context, limit int) ([]*Position, error)
}

// ConfigRepository stores the strategy configuration mapping.
type ConfigRepository interface {
	LoadConfiguration(ctx context.Context) (Configuration, error)
	SeedConfiguration(ctx context.Context, defaults Configuration) (int, error)
	SetConfigValue(ctx context.Context, key string, value float64) error
}

// Alert is an outbound notification. Context carries free-form detail.
type Alert struct {
	Pair      string
	Direction Side
	RSI       float64
	Context   string
}

type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
