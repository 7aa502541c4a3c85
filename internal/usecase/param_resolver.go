package usecase

import (
	"strings"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

// Class-qualified configuration keys. The full key is "<base>_<class tag>",
// e.g. apalancamiento_estable.
const (
	KeyLeverage         = "apalancamiento"
	KeyMargin           = "margen_usdt"
	KeyFixedTakeProfit  = "tp_fijo_usdt"
	KeyStopLossPct      = "sl_porcentaje"
	KeyBreakevenTrigger = "breakeven_porcentaje"
)

// Fallbacks for optional per-class keys.
const (
	DefaultFixedTakeProfit     = 0.0
	DefaultStopLossPct         = 0.03
	DefaultBreakevenTriggerPct = 0.03
)

// DefaultStablePairs is the membership list for RiskClassStable.
var DefaultStablePairs = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}

func ClassKey(base string, class domain.RiskClass) string {
	return base + "_" + class.Tag()
}

// ParameterResolver maps a pair to its risk class and trade parameters.
// It holds no mutable state once built.
type ParameterResolver struct {
	stable map[string]struct{}
}

func NewParameterResolver(stablePairs []string) *ParameterResolver {
	if len(stablePairs) == 0 {
		stablePairs = DefaultStablePairs
	}
	stable := make(map[string]struct{}, len(stablePairs))
	for _, p := range stablePairs {
		stable[normalizePair(p)] = struct{}{}
	}
	return &ParameterResolver{stable: stable}
}

func (r *ParameterResolver) Classify(pair string) domain.RiskClass {
	if _, ok := r.stable[normalizePair(pair)]; ok {
		return domain.RiskClassStable
	}
	return domain.RiskClassVolatile
}

// Resolve reads only keys belonging to the pair's class.
func (r *ParameterResolver) Resolve(pair string, cfg domain.Configuration) domain.TradeParameters {
	class := r.Classify(pair)
	return domain.TradeParameters{
		Class:               class,
		Leverage:            cfg.GetOr(ClassKey(KeyLeverage, class), 0),
		Margin:              cfg.GetOr(ClassKey(KeyMargin, class), 0),
		FixedTakeProfit:     cfg.GetOr(ClassKey(KeyFixedTakeProfit, class), DefaultFixedTakeProfit),
		StopLossPct:         cfg.GetOr(ClassKey(KeyStopLossPct, class), DefaultStopLossPct),
		BreakevenTriggerPct: cfg.GetOr(ClassKey(KeyBreakevenTrigger, class), DefaultBreakevenTriggerPct),
	}
}

func normalizePair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}
