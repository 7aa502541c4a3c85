package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/metrics"
)

type PricePoint struct {
	Price float64
	Time  time.Time
}

type MarketOptions struct {
	CallTimeout time.Duration
	PriceMaxAge time.Duration // streamed prices older than this are ignored
	MinCandles  int
}

// MarketService wraps the exchange client with per-call deadlines, input
// validation and a cache of streamed prices.
type MarketService struct {
	exchange domain.MarketData
	opts     MarketOptions
	logger   *zap.Logger
	prices   map[string]PricePoint
	mu       sync.Mutex
	timeNow  func() time.Time // For testing
}

func NewMarketService(exchange domain.MarketData, opts MarketOptions, logger *zap.Logger) *MarketService {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &MarketService{
		exchange: exchange,
		opts:     opts,
		logger:   logger,
		prices:   make(map[string]PricePoint),
		timeNow:  time.Now,
	}
}

// HandlePrice is the PriceStream callback.
func (s *MarketService) HandlePrice(pair string, price float64, at time.Time) {
	if !validPrice(price) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.prices[pair]; ok && prev.Time.After(at) {
		return
	}
	s.prices[pair] = PricePoint{Price: price, Time: at}
}

// FetchCandles returns at least MinCandles candles, oldest first.
func (s *MarketService) FetchCandles(ctx context.Context, pair, interval string, limit int) ([]domain.Candle, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	candles, err := s.exchange.GetCandles(ctx, pair, interval, limit)
	metrics.ExchangeRequestDuration.WithLabelValues("candles").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeDataUnavailable, pair, "fetch candles", err)
	}
	if len(candles) < s.opts.MinCandles {
		return nil, domain.WrapError(domain.ErrCodeDataUnavailable, pair, "not enough candles", nil)
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Time <= candles[i-1].Time {
			return nil, domain.WrapError(domain.ErrCodeDataUnavailable, pair, "candles out of order", nil)
		}
	}
	return candles, nil
}

// FetchPrices resolves the current price of each pair. Fresh streamed prices
// are used first; the rest come from one bulk request. Pairs without a
// usable price are absent from the result. A non-nil error means the bulk
// request failed, the map may still hold streamed prices.
func (s *MarketService) FetchPrices(ctx context.Context, pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	var missing []string

	s.mu.Lock()
	now := s.timeNow()
	for _, p := range pairs {
		if pp, ok := s.prices[p]; ok && s.opts.PriceMaxAge > 0 && now.Sub(pp.Time) <= s.opts.PriceMaxAge {
			out[p] = pp.Price
			continue
		}
		missing = append(missing, p)
	}
	s.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	fetched, err := s.exchange.GetPrices(ctx, missing)
	metrics.ExchangeRequestDuration.WithLabelValues("prices").Observe(time.Since(start).Seconds())
	if err != nil {
		return out, domain.WrapError(domain.ErrCodeDataUnavailable, "", "fetch prices", err)
	}

	for _, p := range missing {
		price, ok := fetched[p]
		if !ok || !validPrice(price) {
			s.logger.Warn("No usable price", zap.String("pair", p), zap.Float64("price", price))
			continue
		}
		out[p] = price
	}
	return out, nil
}

func (s *MarketService) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.exchange.Ping(ctx); err != nil {
		return domain.WrapError(domain.ErrCodeDataUnavailable, "", "ping exchange", err)
	}
	return nil
}

// withTimeout bounds a call by CallTimeout, keeping an earlier parent deadline.
func (s *MarketService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	earliest := time.Now().Add(s.opts.CallTimeout)
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(earliest) {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithDeadline(ctx, earliest)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
