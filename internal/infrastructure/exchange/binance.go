package exchange

import (
	"context"
	"fmt"
	"strconv"

	binance "github.com/adshao/go-binance/v2"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

const BinanceBaseURL = "https://api.binance.com"

// BinanceAdapter reads spot market data. Keys are optional; every endpoint
// used here is public.
type BinanceAdapter struct {
	client *binance.Client
}

func NewBinanceAdapter(apiKey, apiSecret, baseURL string, testnet bool) *BinanceAdapter {
	if testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceAdapter{client: client}
}

func (b *BinanceAdapter) GetCandles(ctx context.Context, pair, interval string, limit int) ([]domain.Candle, error) {
	if !ValidInterval(interval) {
		return nil, fmt.Errorf("unsupported interval: %s", interval)
	}
	klines, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", pair, err)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := klineToCandle(k)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", pair, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *BinanceAdapter) GetPrice(ctx context.Context, pair string) (float64, error) {
	prices, err := b.GetPrices(ctx, []string{pair})
	if err != nil {
		return 0, err
	}
	p, ok := prices[pair]
	if !ok {
		return 0, fmt.Errorf("symbol not found: %s", pair)
	}
	return p, nil
}

func (b *BinanceAdapter) GetPrices(ctx context.Context, pairs []string) (map[string]float64, error) {
	res, err := b.client.NewListPricesService().Symbols(pairs).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance prices: %w", err)
	}
	out := make(map[string]float64, len(res))
	for _, p := range res {
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}
		out[p.Symbol] = v
	}
	return out, nil
}

func (b *BinanceAdapter) Ping(ctx context.Context) error {
	return b.client.NewPingService().Do(ctx)
}

func klineToCandle(k *binance.Kline) (domain.Candle, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("bad kline value %q at %d: %w", f, k.OpenTime, err)
		}
		values[i] = v
	}
	return domain.Candle{
		Time:   k.OpenTime,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
