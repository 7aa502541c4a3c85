package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/indicator"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/metrics"
)

type ScanSettings struct {
	Pairs       []string
	Interval    string
	CandleLimit int
	MaxWorkers  int
	FrameMaxAge time.Duration // 0 disables the freshness check
}

type PairFailure struct {
	Pair  string `json:"pair"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// CycleReport summarizes one pass of monitoring plus scanning.
type CycleReport struct {
	Started       time.Time     `json:"started"`
	Finished      time.Time     `json:"finished"`
	OpenPositions int           `json:"open_positions"`
	Evaluated     int           `json:"evaluated"`
	Adjusted      int           `json:"adjusted"`
	Closed        int           `json:"closed"`
	Skipped       int           `json:"skipped"`
	PairsScanned  int           `json:"pairs_scanned"`
	Signals       int           `json:"signals"`
	Opened        int           `json:"opened"`
	Failures      []PairFailure `json:"failures"`
}

type reportBuilder struct {
	mu     sync.Mutex
	report CycleReport
}

func (b *reportBuilder) update(fn func(r *CycleReport)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.report)
}

// ScanService runs the monitoring and scanning cycle. Pairs are processed
// independently: a failure on one pair is recorded and the rest continue.
type ScanService struct {
	market   *MarketService
	repo     domain.PositionRepository
	notifier domain.Notifier
	executor *TradeExecutor
	strategy *Strategy
	settings ScanSettings
	logger   *zap.Logger
	timeNow  func() time.Time

	mu   sync.RWMutex
	last *CycleReport
}

func NewScanService(
	market *MarketService,
	repo domain.PositionRepository,
	notifier domain.Notifier,
	strategy *Strategy,
	settings ScanSettings,
	logger *zap.Logger,
) *ScanService {
	if settings.MaxWorkers <= 0 {
		settings.MaxWorkers = 4
	}
	return &ScanService{
		market:   market,
		repo:     repo,
		notifier: notifier,
		executor: NewTradeExecutor(repo),
		strategy: strategy,
		settings: settings,
		logger:   logger,
		timeNow:  time.Now,
	}
}

func (s *ScanService) Strategy() *Strategy {
	return s.strategy
}

func (s *ScanService) Settings() ScanSettings {
	return s.settings
}

// LastReport returns the report of the most recent completed cycle.
func (s *ScanService) LastReport() (CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return CycleReport{}, false
	}
	return *s.last, true
}

// RunCycle monitors open positions, then scans every configured pair for
// entries.
func (s *ScanService) RunCycle(ctx context.Context) CycleReport {
	b := &reportBuilder{report: CycleReport{Started: s.timeNow()}}

	openPairs, ok := s.monitorPositions(ctx, b)
	if !ok && s.strategy.OnePositionPerPair {
		s.logger.Warn("Open positions unknown, skipping entry scan this cycle")
	} else {
		s.scanPairs(ctx, b, openPairs)
	}

	b.update(func(r *CycleReport) { r.Finished = s.timeNow() })
	report := b.report

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(report.Finished.Sub(report.Started).Seconds())

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	s.logger.Info("Cycle complete",
		zap.Int("open_positions", report.OpenPositions),
		zap.Int("closed", report.Closed),
		zap.Int("adjusted", report.Adjusted),
		zap.Int("pairs_scanned", report.PairsScanned),
		zap.Int("signals", report.Signals),
		zap.Int("opened", report.Opened),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("took", report.Finished.Sub(report.Started)),
	)
	return report
}

// monitorPositions evaluates every open position. It returns the set of
// pairs holding an open position and whether that set could be read.
func (s *ScanService) monitorPositions(ctx context.Context, b *reportBuilder) (map[string]bool, bool) {
	positions, err := s.repo.FetchOpenPositions(ctx)
	if err != nil {
		s.fail(b, "", domain.WrapError(domain.ErrCodePersistenceNonCritical, "", "fetch open positions", err))
		return nil, false
	}

	metrics.OpenPositions.Set(float64(len(positions)))
	b.update(func(r *CycleReport) { r.OpenPositions = len(positions) })

	openPairs := make(map[string]bool)
	var pairs []string
	for _, p := range positions {
		if !openPairs[p.Pair] {
			openPairs[p.Pair] = true
			pairs = append(pairs, p.Pair)
		}
	}
	if len(positions) == 0 {
		return openPairs, true
	}

	// Prices and frames are independent, fetch them side by side.
	var (
		prices    map[string]float64
		pricesErr error
		wg        sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		prices, pricesErr = s.market.FetchPrices(ctx, pairs)
	}()
	frames := s.latestFrames(ctx, pairs)
	wg.Wait()

	if pricesErr != nil {
		s.logger.Warn("Price fetch failed", zap.Error(pricesErr), zap.Int("cached", len(prices)))
	}

	runBounded(s.settings.MaxWorkers, len(positions), func(i int) {
		pos := positions[i]
		err := safeCall(func() error {
			return s.monitorPosition(ctx, b, pos, prices, frames)
		})
		if err != nil {
			s.fail(b, pos.Pair, err)
		}
	})
	return openPairs, true
}

func (s *ScanService) latestFrames(ctx context.Context, pairs []string) map[string]domain.IndicatorFrame {
	var mu sync.Mutex
	frames := make(map[string]domain.IndicatorFrame, len(pairs))
	runBounded(s.settings.MaxWorkers, len(pairs), func(i int) {
		pair := pairs[i]
		var frame domain.IndicatorFrame
		err := safeCall(func() error {
			var err error
			frame, _, err = s.analyze(ctx, pair)
			return err
		})
		if err != nil {
			s.logger.Warn("No indicator frame for monitoring", zap.String("pair", pair), zap.Error(err))
			return
		}
		mu.Lock()
		frames[pair] = frame
		mu.Unlock()
	})
	return frames
}

func (s *ScanService) monitorPosition(ctx context.Context, b *reportBuilder, pos *domain.Position, prices map[string]float64, frames map[string]domain.IndicatorFrame) error {
	price, ok := prices[pos.Pair]
	if !ok {
		s.logger.Warn("No current price, position skipped", zap.String("id", pos.ID), zap.String("pair", pos.Pair))
		b.update(func(r *CycleReport) { r.Skipped++ })
		return nil
	}

	frame := optional.None[domain.IndicatorFrame]()
	if f, ok := frames[pos.Pair]; ok {
		frame = optional.Some(f)
	}

	params := s.strategy.Resolver.Resolve(pos.Pair, s.strategy.Config)
	d := s.strategy.Engine.Evaluate(*pos, params, price, frame)
	b.update(func(r *CycleReport) { r.Evaluated++ })

	switch d.Action {
	case ActionAdjustStopLoss:
		if err := s.executor.Apply(ctx, pos, d); err != nil {
			return err
		}
		metrics.StopLossAdjusted.WithLabelValues(pos.Pair).Inc()
		b.update(func(r *CycleReport) { r.Adjusted++ })
		s.logger.Info("Breakeven activated",
			zap.String("id", pos.ID),
			zap.String("pair", pos.Pair),
			zap.Float64("stop_loss", d.StopLoss),
			zap.Float64("profit", d.Profit),
		)
		s.notify(ctx, domain.Alert{
			Pair:      pos.Pair,
			Direction: pos.Side,
			Context:   fmt.Sprintf("Breakeven: stop moved to entry %s", formatPrice(d.StopLoss)),
		})
	case ActionClose:
		if err := s.executor.Apply(ctx, pos, d); err != nil {
			return err
		}
		metrics.PositionsClosed.WithLabelValues(pos.Pair, d.State.String()).Inc()
		metrics.ObserveProfit(d.Profit)
		b.update(func(r *CycleReport) { r.Closed++ })
		s.logger.Info("Position closed",
			zap.String("id", pos.ID),
			zap.String("pair", pos.Pair),
			zap.String("side", string(pos.Side)),
			zap.String("state", d.State.String()),
			zap.Float64("exit_price", d.Price),
			zap.Float64("profit", d.Profit),
		)
		rsi := 0.0
		if frame.IsSome() {
			rsi = frame.Unwrap().RSI
		}
		s.notify(ctx, domain.Alert{
			Pair:      pos.Pair,
			Direction: pos.Side,
			RSI:       rsi,
			Context:   fmt.Sprintf("Closed %s at %s, profit %s USDT", d.State, formatPrice(d.Price), formatAmount(d.Profit)),
		})
	}
	return nil
}

func (s *ScanService) scanPairs(ctx context.Context, b *reportBuilder, openPairs map[string]bool) {
	pairs := s.settings.Pairs
	runBounded(s.settings.MaxWorkers, len(pairs), func(i int) {
		pair := pairs[i]
		err := safeCall(func() error {
			return s.scanPair(ctx, b, pair, openPairs[pair])
		})
		if err != nil {
			s.fail(b, pair, err)
		}
	})
}

func (s *ScanService) scanPair(ctx context.Context, b *reportBuilder, pair string, hasOpen bool) error {
	frame, candles, err := s.analyze(ctx, pair)
	if err != nil {
		return err
	}
	b.update(func(r *CycleReport) { r.PairsScanned++ })

	volumes := RecentVolumes(candles, indicator.VolumeWindowCount)
	side, ok := s.strategy.Detector.Detect(frame, volumes)
	if !ok {
		s.logger.Debug("No signal", zap.String("pair", pair), zap.Float64("rsi", frame.RSI), zap.Float64("volume", frame.Volume))
		return nil
	}

	metrics.SignalsTotal.WithLabelValues(pair, string(side)).Inc()
	b.update(func(r *CycleReport) { r.Signals++ })
	s.logger.Info("Signal detected",
		zap.String("pair", pair),
		zap.String("side", string(side)),
		zap.Float64("rsi", frame.RSI),
		zap.Float64("volume", frame.Volume),
		zap.Float64("avg_volume", AverageVolume(volumes)),
	)

	if hasOpen && s.strategy.OnePositionPerPair {
		s.logger.Info("Pair already has an open position, entry skipped", zap.String("pair", pair))
		return nil
	}

	params := s.strategy.Resolver.Resolve(pair, s.strategy.Config)
	pos, err := s.executor.Open(ctx, pair, side, frame, params)
	if err != nil {
		return err
	}

	metrics.PositionsOpened.WithLabelValues(pair, string(side)).Inc()
	b.update(func(r *CycleReport) { r.Opened++ })
	s.logger.Info("Position opened",
		zap.String("id", pos.ID),
		zap.String("pair", pair),
		zap.String("side", string(side)),
		zap.String("class", params.Class.String()),
		zap.Float64("entry", pos.EntryPrice),
		zap.Float64("size", pos.Size),
		zap.Float64("stop_loss", pos.StopLoss),
	)

	s.notify(ctx, domain.Alert{
		Pair:      pair,
		Direction: side,
		RSI:       frame.RSI,
		Context:   entryContext(pos, frame, AverageVolume(volumes)),
	})
	return nil
}

// analyze fetches candles and returns the latest indicator frame.
func (s *ScanService) analyze(ctx context.Context, pair string) (domain.IndicatorFrame, []domain.Candle, error) {
	candles, err := s.market.FetchCandles(ctx, pair, s.settings.Interval, s.settings.CandleLimit)
	if err != nil {
		return domain.IndicatorFrame{}, nil, err
	}
	frames, err := indicator.Compute(candles, s.strategy.Periods)
	if err != nil {
		return domain.IndicatorFrame{}, nil, domain.WrapError(domain.ErrCodeCompute, pair, "compute indicators", err)
	}
	frame, ok := indicator.Latest(frames)
	if !ok {
		return domain.IndicatorFrame{}, nil, domain.WrapError(domain.ErrCodeCompute, pair,
			fmt.Sprintf("%d candles do not cover indicator warm-up of %d", len(candles), s.strategy.Periods.StartIndex()+1), nil)
	}
	if s.settings.FrameMaxAge > 0 {
		age := s.timeNow().Sub(time.UnixMilli(frame.Time))
		if age > s.settings.FrameMaxAge {
			return domain.IndicatorFrame{}, nil, domain.WrapError(domain.ErrCodeDataUnavailable, pair,
				fmt.Sprintf("latest candle is %s old", age.Truncate(time.Second)), nil)
		}
	}
	return frame, candles, nil
}

func (s *ScanService) fail(b *reportBuilder, pair string, err error) {
	code := domain.CodeOf(err)
	label := pair
	if label == "" {
		label = "all"
	}
	metrics.PairErrors.WithLabelValues(label, code.String()).Inc()

	fields := []zap.Field{zap.String("pair", pair), zap.String("kind", code.String()), zap.Error(err)}
	if code == domain.ErrCodePersistenceCritical {
		s.logger.Error("Pair failed", fields...)
	} else {
		s.logger.Warn("Pair failed", fields...)
	}

	b.update(func(r *CycleReport) {
		r.Failures = append(r.Failures, PairFailure{Pair: pair, Kind: code.String(), Error: err.Error()})
	})
}

// notify is best-effort; failures are logged only.
func (s *ScanService) notify(ctx context.Context, alert domain.Alert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Warn("Notification failed", zap.String("pair", alert.Pair), zap.Error(err))
	}
}
