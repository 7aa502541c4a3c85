package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/indicator"
)

const candleStep = int64(5 * 60 * 1000)

func testConfig() domain.Configuration {
	cfg := DefaultConfiguration()
	cfg[indicator.KeyRSIPeriod] = 5
	cfg[indicator.KeyMAFastPeriod] = 3
	cfg[indicator.KeyMAMediumPeriod] = 5
	cfg[indicator.KeyMASlowPeriod] = 8
	cfg[indicator.KeyADXPeriod] = 5
	cfg[KeyVolumeThreshold] = 2
	cfg[KeyRSIOversold] = 30
	cfg[KeyRSIOverbought] = 70
	return cfg
}

// fallingCandles drives RSI to 0. With spike set, the last candle carries
// ten times the usual volume.
func fallingCandles(n int, spike bool) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		c := 200 - float64(i)
		out[i] = domain.Candle{
			Time:   1_700_000_000_000 + int64(i)*candleStep,
			Open:   c + 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}
	if spike {
		out[n-1].Volume = 100
	}
	return out
}

func newTestScanService(t *testing.T, market *MockMarket, repo *MockRepo, notifier *MockNotifier, pairs []string, cfg domain.Configuration) *ScanService {
	t.Helper()
	strategy, err := NewStrategy(cfg, nil)
	require.NoError(t, err)

	ms := NewMarketService(market, MarketOptions{MinCandles: 30, CallTimeout: time.Second}, zap.NewNop())
	return NewScanService(ms, repo, notifier, strategy, ScanSettings{
		Pairs:       pairs,
		Interval:    "5m",
		CandleLimit: 200,
		MaxWorkers:  2,
	}, zap.NewNop())
}

func TestScanService_OneFailingPairDoesNotStopOthers(t *testing.T) {
	pairs := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT"}
	market := &MockMarket{
		Candles: map[string][]domain.Candle{
			"BTCUSDT": fallingCandles(40, true),
			"ETHUSDT": fallingCandles(40, true),
			"XRPUSDT": fallingCandles(40, true),
		},
		CandleErr: map[string]error{"SOLUSDT": errors.New("connection reset")},
	}
	repo := NewMockRepo()
	notifier := &MockNotifier{}
	service := newTestScanService(t, market, repo, notifier, pairs, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 3, report.PairsScanned)
	assert.Equal(t, 3, report.Signals)
	assert.Equal(t, 3, report.Opened)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "SOLUSDT", report.Failures[0].Pair)
	assert.Equal(t, domain.ErrCodeDataUnavailable.String(), report.Failures[0].Kind)

	for _, pair := range []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"} {
		stored := repo.ByPair(pair)
		require.Len(t, stored, 1, pair)
		assert.Equal(t, domain.SideLong, stored[0].Side)
		assert.Equal(t, 161.0, stored[0].EntryPrice)
		assert.Less(t, stored[0].StopLoss, stored[0].EntryPrice)
	}
	assert.Empty(t, repo.ByPair("SOLUSDT"))
	assert.Equal(t, 3, notifier.Count())

	last, ok := service.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.Opened, last.Opened)
}

func TestScanService_NoSignalWithoutVolume(t *testing.T) {
	market := &MockMarket{Candles: map[string][]domain.Candle{"BTCUSDT": fallingCandles(40, false)}}
	repo := NewMockRepo()
	service := newTestScanService(t, market, repo, &MockNotifier{}, []string{"BTCUSDT"}, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.PairsScanned)
	assert.Zero(t, report.Signals)
	assert.Empty(t, repo.ByPair("BTCUSDT"))
}

func TestScanService_InsufficientWarmupIsComputeError(t *testing.T) {
	cfg := testConfig()
	cfg[indicator.KeyMASlowPeriod] = 100
	market := &MockMarket{Candles: map[string][]domain.Candle{"BTCUSDT": fallingCandles(40, true)}}
	service := newTestScanService(t, market, NewMockRepo(), &MockNotifier{}, []string{"BTCUSDT"}, cfg)

	report := service.RunCycle(context.Background())

	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.ErrCodeCompute.String(), report.Failures[0].Kind)
}

func TestScanService_InsertFailureIsCriticalForThatPairOnly(t *testing.T) {
	market := &MockMarket{Candles: map[string][]domain.Candle{
		"BTCUSDT": fallingCandles(40, true),
		"ETHUSDT": fallingCandles(40, true),
	}}
	repo := NewMockRepo()
	repo.InsertErr = map[string]error{"ETHUSDT": errors.New("disk full")}
	notifier := &MockNotifier{}
	service := newTestScanService(t, market, repo, notifier, []string{"BTCUSDT", "ETHUSDT"}, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 2, report.Signals)
	assert.Equal(t, 1, report.Opened)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "ETHUSDT", report.Failures[0].Pair)
	assert.Equal(t, domain.ErrCodePersistenceCritical.String(), report.Failures[0].Kind)
	assert.Equal(t, 1, notifier.Count())
}

func TestScanService_NotifyFailureIsIgnored(t *testing.T) {
	market := &MockMarket{Candles: map[string][]domain.Candle{"BTCUSDT": fallingCandles(40, true)}}
	repo := NewMockRepo()
	notifier := &MockNotifier{Err: errors.New("telegram down")}
	service := newTestScanService(t, market, repo, notifier, []string{"BTCUSDT"}, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.Opened)
	assert.Empty(t, report.Failures)
}

func TestScanService_MonitorClosesOnStopLoss(t *testing.T) {
	open := &domain.Position{
		ID: "p1", Pair: "BTCUSDT", Side: domain.SideLong,
		EntryPrice: 100, Size: 1, StopLoss: 99.9, State: domain.StateOpen,
	}
	market := &MockMarket{Prices: map[string]float64{"BTCUSDT": 99.8}}
	repo := NewMockRepo(open)
	notifier := &MockNotifier{}
	service := newTestScanService(t, market, repo, notifier, nil, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.OpenPositions)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Closed)

	stored := repo.Get("p1")
	assert.Equal(t, domain.StateClosedStopLoss, stored.State)
	require.NotNil(t, stored.Profit)
	assert.InDelta(t, -0.2, *stored.Profit, 1e-9)
	assert.Equal(t, 1, notifier.Count())
}

func TestScanService_MonitorActivatesBreakeven(t *testing.T) {
	// Stable class: trigger at 50 * 0.03 = 1.5 USDT.
	open := &domain.Position{
		ID: "p1", Pair: "BTCUSDT", Side: domain.SideLong,
		EntryPrice: 100, Size: 1, StopLoss: 99, State: domain.StateOpen,
	}
	market := &MockMarket{Prices: map[string]float64{"BTCUSDT": 102}}
	repo := NewMockRepo(open)
	cfg := testConfig()
	cfg["tp_fijo_usdt_estable"] = 0
	service := newTestScanService(t, market, repo, &MockNotifier{}, nil, cfg)

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.Adjusted)
	stored := repo.Get("p1")
	assert.Equal(t, domain.StateOpen, stored.State)
	assert.True(t, stored.BreakevenActive)
	assert.Equal(t, 100.0, stored.StopLoss)
}

func TestScanService_MonitorUpdateFailureIsSwallowed(t *testing.T) {
	positions := []*domain.Position{
		{ID: "p1", Pair: "BTCUSDT", Side: domain.SideLong, EntryPrice: 100, Size: 1, StopLoss: 99.9, State: domain.StateOpen},
		{ID: "p2", Pair: "ETHUSDT", Side: domain.SideShort, EntryPrice: 100, Size: 1, StopLoss: 100.1, State: domain.StateOpen},
	}
	market := &MockMarket{Prices: map[string]float64{"BTCUSDT": 99, "ETHUSDT": 101}}
	repo := NewMockRepo(positions...)
	repo.UpdateErr = errors.New("database is locked")
	service := newTestScanService(t, market, repo, &MockNotifier{}, nil, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 2, report.Evaluated)
	assert.Zero(t, report.Closed)
	require.Len(t, report.Failures, 2)
	for _, f := range report.Failures {
		assert.Equal(t, domain.ErrCodePersistenceNonCritical.String(), f.Kind)
	}
	assert.Equal(t, domain.StateOpen, repo.Get("p1").State)
	assert.Equal(t, domain.StateOpen, repo.Get("p2").State)
}

func TestScanService_MonitorSkipsPositionWithoutPrice(t *testing.T) {
	open := &domain.Position{ID: "p1", Pair: "BTCUSDT", Side: domain.SideLong, EntryPrice: 100, Size: 1, StopLoss: 99.9, State: domain.StateOpen}
	market := &MockMarket{PricesErr: errors.New("timeout")}
	repo := NewMockRepo(open)
	service := newTestScanService(t, market, repo, &MockNotifier{}, nil, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Evaluated)
	assert.Equal(t, domain.StateOpen, repo.Get("p1").State)
}

func TestScanService_OnePositionPerPair(t *testing.T) {
	open := &domain.Position{ID: "p1", Pair: "BTCUSDT", Side: domain.SideLong, EntryPrice: 161, Size: 1, StopLoss: 150, State: domain.StateOpen}
	market := &MockMarket{
		Candles: map[string][]domain.Candle{"BTCUSDT": fallingCandles(40, true)},
		Prices:  map[string]float64{"BTCUSDT": 161},
	}
	repo := NewMockRepo(open)
	cfg := testConfig()
	cfg[KeyOnePositionPerPair] = 1
	service := newTestScanService(t, market, repo, &MockNotifier{}, []string{"BTCUSDT"}, cfg)

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.Signals)
	assert.Zero(t, report.Opened)
	assert.Len(t, repo.ByPair("BTCUSDT"), 1)
}

func TestScanService_FetchOpenFailureStillScans(t *testing.T) {
	market := &MockMarket{Candles: map[string][]domain.Candle{"BTCUSDT": fallingCandles(40, true)}}
	repo := NewMockRepo()
	repo.FetchErr = errors.New("no such table")
	service := newTestScanService(t, market, repo, &MockNotifier{}, []string{"BTCUSDT"}, testConfig())

	report := service.RunCycle(context.Background())

	assert.Equal(t, 1, report.Opened)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "", report.Failures[0].Pair)
}

func TestScanService_StaleFrame(t *testing.T) {
	market := &MockMarket{Candles: map[string][]domain.Candle{"BTCUSDT": fallingCandles(40, true)}}
	service := newTestScanService(t, market, NewMockRepo(), &MockNotifier{}, []string{"BTCUSDT"}, testConfig())
	service.settings.FrameMaxAge = 10 * time.Minute

	report := service.RunCycle(context.Background())

	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.ErrCodeDataUnavailable.String(), report.Failures[0].Kind)
	assert.Zero(t, report.Opened)
}

func TestScanService_FailureLogCarriesPairAndKind(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	market := &MockMarket{CandleErr: map[string]error{"SOLUSDT": errors.New("timeout")}}
	service := newTestScanService(t, market, NewMockRepo(), &MockNotifier{}, []string{"SOLUSDT"}, testConfig())
	service.logger = zap.New(core)

	service.RunCycle(context.Background())

	entries := logs.FilterMessage("Pair failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "SOLUSDT", fields["pair"])
	assert.Equal(t, domain.ErrCodeDataUnavailable.String(), fields["kind"])
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}
