package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// PositionState mirrors the id_estado column of the positions table.
type PositionState int

const (
	StateOpen                    PositionState = 1
	StateClosedBreakeven         PositionState = 2
	StateClosedStopLoss          PositionState = 3
	StateClosedDynamicTakeProfit PositionState = 4
	StateClosedFixedTakeProfit   PositionState = 5
)

func (s PositionState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosedBreakeven:
		return "CLOSED_BREAKEVEN"
	case StateClosedStopLoss:
		return "CLOSED_STOP_LOSS"
	case StateClosedDynamicTakeProfit:
		return "CLOSED_DYNAMIC_TP"
	case StateClosedFixedTakeProfit:
		return "CLOSED_FIXED_TP"
	default:
		return "UNKNOWN"
	}
}

func (s PositionState) IsTerminal() bool {
	return s >= StateClosedBreakeven && s <= StateClosedFixedTakeProfit
}

// Position is a simulated trade. Rows are created on a signal and then only
// mutated by a stop-loss adjustment or a single terminal close.
type Position struct {
	ID              string        `json:"id"`
	Pair            string        `json:"pair"`
	Side            Side          `json:"side"`
	EntryTime       time.Time     `json:"entry_time"`
	EntryPrice      float64       `json:"entry_price"`
	Size            float64       `json:"size"`
	EntryRSI        float64       `json:"entry_rsi"`
	EntryVolume     float64       `json:"entry_volume"`
	StopLoss        float64       `json:"stop_loss"`
	BreakevenActive bool          `json:"breakeven_active"`
	State           PositionState `json:"state"`
	ExitTime        *time.Time    `json:"exit_time,omitempty"`
	ExitPrice       *float64      `json:"exit_price,omitempty"`
	Profit          *float64      `json:"profit_usdt,omitempty"`
}

// ProfitAt returns the unrealized profit in quote currency at price.
func (p *Position) ProfitAt(price float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - price) * p.Size
	}
	return (price - p.EntryPrice) * p.Size
}

// CloseFields are written once when a position reaches a terminal state.
type CloseFields struct {
	State     PositionState
	ExitTime  time.Time
	ExitPrice float64
	Profit    float64
}
