package usecase

import (
	"math"

	"github.com/moznion/go-optional"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

const (
	KeyDynamicTPRSI     = "rsi_tp_dinamico"
	DefaultDynamicTPRSI = 50.0
)

type Action int

const (
	ActionNone Action = iota
	ActionAdjustStopLoss
	ActionClose
)

func (a Action) String() string {
	switch a {
	case ActionAdjustStopLoss:
		return "adjust_stop_loss"
	case ActionClose:
		return "close"
	default:
		return "none"
	}
}

// Decision is the outcome of one evaluation. For ActionAdjustStopLoss only
// StopLoss and Breakeven are meaningful; for ActionClose, State, Price and
// Profit describe the exit.
type Decision struct {
	Action    Action
	State     domain.PositionState
	StopLoss  float64
	Breakeven bool
	Price     float64
	Profit    float64
}

// PositionEngine applies the exit rules to an open position. It is pure:
// persistence of the decision is the caller's job.
type PositionEngine struct {
	dynamicTPRSI float64
}

func NewPositionEngine(dynamicTPRSI float64) *PositionEngine {
	return &PositionEngine{dynamicTPRSI: dynamicTPRSI}
}

func (e *PositionEngine) DynamicTPLevel() float64 {
	return e.dynamicTPRSI
}

// Evaluate checks, in order: stop-loss hit, breakeven activation, dynamic
// take-profit, fixed take-profit. The first rule that fires wins.
func (e *PositionEngine) Evaluate(pos domain.Position, params domain.TradeParameters, price float64, frame optional.Option[domain.IndicatorFrame]) Decision {
	if pos.State != domain.StateOpen || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Decision{Action: ActionNone, StopLoss: pos.StopLoss, Breakeven: pos.BreakevenActive}
	}

	profit := pos.ProfitAt(price)

	if stopLossHit(pos, price) {
		state := domain.StateClosedStopLoss
		if pos.BreakevenActive {
			state = domain.StateClosedBreakeven
		}
		return closeDecision(pos, state, price, profit)
	}

	if !pos.BreakevenActive && profit >= params.Margin*params.BreakevenTriggerPct {
		return Decision{
			Action:    ActionAdjustStopLoss,
			State:     domain.StateOpen,
			StopLoss:  pos.EntryPrice,
			Breakeven: true,
			Price:     price,
			Profit:    profit,
		}
	}

	if pos.BreakevenActive && profit > 0 && frame.IsSome() {
		rsi := frame.Unwrap().RSI
		if (pos.Side == domain.SideLong && rsi <= e.dynamicTPRSI) ||
			(pos.Side == domain.SideShort && rsi >= e.dynamicTPRSI) {
			return closeDecision(pos, domain.StateClosedDynamicTakeProfit, price, profit)
		}
	}

	if params.FixedTakeProfit > 0 && profit >= params.FixedTakeProfit {
		return closeDecision(pos, domain.StateClosedFixedTakeProfit, price, profit)
	}

	return Decision{Action: ActionNone, State: domain.StateOpen, StopLoss: pos.StopLoss, Breakeven: pos.BreakevenActive, Price: price, Profit: profit}
}

// A zero stop is treated as unset.
func stopLossHit(pos domain.Position, price float64) bool {
	if pos.StopLoss <= 0 {
		return false
	}
	if pos.Side == domain.SideShort {
		return price >= pos.StopLoss
	}
	return price <= pos.StopLoss
}

func closeDecision(pos domain.Position, state domain.PositionState, price, profit float64) Decision {
	return Decision{
		Action:    ActionClose,
		State:     state,
		StopLoss:  pos.StopLoss,
		Breakeven: pos.BreakevenActive,
		Price:     price,
		Profit:    profit,
	}
}
