package usecase

import (
	"context"
	"time"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

// TradeExecutor carries out simulated trades against the position store.
type TradeExecutor struct {
	repo    domain.PositionRepository
	timeNow func() time.Time
}

func NewTradeExecutor(repo domain.PositionRepository) *TradeExecutor {
	return &TradeExecutor{
		repo:    repo,
		timeNow: time.Now,
	}
}

// Open sizes a position at the frame's close and stores it. Failure to store
// is critical for the pair.
func (e *TradeExecutor) Open(ctx context.Context, pair string, side domain.Side, frame domain.IndicatorFrame, params domain.TradeParameters) (*domain.Position, error) {
	if side != domain.SideLong && side != domain.SideShort {
		return nil, domain.Errorf(domain.ErrCodeCompute, "invalid side: %s", side)
	}
	entry := frame.Close
	size := PositionSize(params, entry)
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrCodeInvalidConfiguration, pair, "position size is zero, check margin and leverage", nil)
	}

	pos := &domain.Position{
		Pair:        pair,
		Side:        side,
		EntryTime:   e.timeNow().UTC(),
		EntryPrice:  entry,
		Size:        size,
		EntryRSI:    frame.RSI,
		EntryVolume: frame.Volume,
		StopLoss:    InitialStopLoss(side, entry, size, params),
		State:       domain.StateOpen,
	}

	id, err := e.repo.InsertPosition(ctx, pos)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodePersistenceCritical, pair, "insert position", err)
	}
	pos.ID = id
	return pos, nil
}

// Apply persists a decision and mirrors it on pos. Store failures are
// non-critical: the position is simply re-evaluated next cycle.
func (e *TradeExecutor) Apply(ctx context.Context, pos *domain.Position, d Decision) error {
	switch d.Action {
	case ActionAdjustStopLoss:
		if err := e.repo.UpdateStopLoss(ctx, pos.ID, d.StopLoss, d.Breakeven); err != nil {
			return domain.WrapError(domain.ErrCodePersistenceNonCritical, pos.Pair, "update stop loss", err)
		}
		pos.StopLoss = d.StopLoss
		pos.BreakevenActive = d.Breakeven
	case ActionClose:
		fields := domain.CloseFields{
			State:     d.State,
			ExitTime:  e.timeNow().UTC(),
			ExitPrice: d.Price,
			Profit:    d.Profit,
		}
		if err := e.repo.UpdatePosition(ctx, pos.ID, fields); err != nil {
			return domain.WrapError(domain.ErrCodePersistenceNonCritical, pos.Pair, "close position", err)
		}
		pos.State = fields.State
		pos.ExitTime = &fields.ExitTime
		pos.ExitPrice = &fields.ExitPrice
		pos.Profit = &fields.Profit
	}
	return nil
}
