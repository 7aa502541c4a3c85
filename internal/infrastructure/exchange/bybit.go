package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

const (
	BybitBaseURL = "https://api.bybit.com"
	BybitWSURL   = "wss://stream.bybit.com/v5/public/spot"
)

// BybitAdapter reads V5 public market data.
type BybitAdapter struct {
	client   *resty.Client
	category string
}

func NewBybitAdapter(baseURL, category string) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	if category == "" {
		category = "spot"
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	return &BybitAdapter{client: client, category: category}
}

type bybitResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (b *BybitAdapter) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var envelope bybitResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return err
	}
	if envelope.RetCode != 0 {
		return fmt.Errorf("bybit error %d: %s", envelope.RetCode, envelope.RetMsg)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

func (b *BybitAdapter) GetCandles(ctx context.Context, pair, interval string, limit int) ([]domain.Candle, error) {
	bi, err := toBybitInterval(interval)
	if err != nil {
		return nil, err
	}

	var result struct {
		List [][]string `json:"list"`
	}
	err = b.get(ctx, "/v5/market/kline", map[string]string{
		"category": b.category,
		"symbol":   pair,
		"interval": bi,
		"limit":    strconv.Itoa(limit),
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("bybit kline %s: %w", pair, err)
	}

	candles := make([]domain.Candle, 0, len(result.List))
	for _, raw := range result.List {
		// Format: [startTime, open, high, low, close, volume, turnover]
		if len(raw) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(raw[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bybit kline %s: bad start time %q", pair, raw[0])
		}
		var v [5]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(raw[i+1], 64); err != nil {
				return nil, fmt.Errorf("bybit kline %s: bad value %q", pair, raw[i+1])
			}
		}
		candles = append(candles, domain.Candle{
			Time:   ts,
			Open:   v[0],
			High:   v[1],
			Low:    v[2],
			Close:  v[3],
			Volume: v[4],
		})
	}

	// Bybit returns newest first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func (b *BybitAdapter) GetPrice(ctx context.Context, pair string) (float64, error) {
	prices, err := b.tickers(ctx, pair)
	if err != nil {
		return 0, err
	}
	p, ok := prices[pair]
	if !ok {
		return 0, fmt.Errorf("symbol not found: %s", pair)
	}
	return p, nil
}

// GetPrices fetches the whole ticker list once and keeps the wanted pairs.
func (b *BybitAdapter) GetPrices(ctx context.Context, pairs []string) (map[string]float64, error) {
	all, err := b.tickers(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		if v, ok := all[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

func (b *BybitAdapter) tickers(ctx context.Context, symbol string) (map[string]float64, error) {
	params := map[string]string{"category": b.category}
	if symbol != "" {
		params["symbol"] = symbol
	}
	var result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := b.get(ctx, "/v5/market/tickers", params, &result); err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}
	out := make(map[string]float64, len(result.List))
	for _, t := range result.List {
		v, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			continue
		}
		out[t.Symbol] = v
	}
	return out, nil
}

func (b *BybitAdapter) Ping(ctx context.Context) error {
	return b.get(ctx, "/v5/market/time", nil, nil)
}
