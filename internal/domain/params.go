package domain

type RiskClass int

const (
	RiskClassVolatile RiskClass = iota
	RiskClassStable
)

// Tag is the suffix used for class-specific configuration keys.
func (c RiskClass) Tag() string {
	if c == RiskClassStable {
		return "estable"
	}
	return "volatil"
}

func (c RiskClass) String() string {
	if c == RiskClassStable {
		return "Stable"
	}
	return "Volatile"
}

// TradeParameters are the numeric thresholds resolved for one pair.
type TradeParameters struct {
	Class               RiskClass
	Leverage            float64
	Margin              float64 // USDT
	FixedTakeProfit     float64 // USDT, 0 disables
	StopLossPct         float64 // fraction of margin
	BreakevenTriggerPct float64 // fraction of margin
}
