package usecase

import (
	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/indicator"
)

// KeyOnePositionPerPair blocks new entries on pairs that already hold an
// open position when set to a non-zero value.
const KeyOnePositionPerPair = "una_posicion_por_par"

// RequiredConfigKeys lists the keys that must be present before a cycle runs.
func RequiredConfigKeys() []string {
	keys := []string{
		indicator.KeyRSIPeriod,
		indicator.KeyMAFastPeriod,
		indicator.KeyMAMediumPeriod,
		indicator.KeyMASlowPeriod,
		KeyVolumeThreshold,
		KeyRSIOversold,
		KeyRSIOverbought,
	}
	for _, class := range []domain.RiskClass{domain.RiskClassStable, domain.RiskClassVolatile} {
		keys = append(keys, ClassKey(KeyLeverage, class), ClassKey(KeyMargin, class))
	}
	return keys
}

// DefaultConfiguration is the seed written to an empty configuration table.
func DefaultConfiguration() domain.Configuration {
	return domain.Configuration{
		indicator.KeyRSIPeriod:      indicator.RSIPeriodDefault,
		indicator.KeyMAFastPeriod:   indicator.MAFastDefault,
		indicator.KeyMAMediumPeriod: indicator.MAMediumDefault,
		indicator.KeyMASlowPeriod:   indicator.MASlowDefault,
		indicator.KeyADXPeriod:      indicator.ADXPeriodDefault,
		KeyVolumeThreshold:          1.5,
		KeyRSIOversold:              30,
		KeyRSIOverbought:            70,
		KeyDynamicTPRSI:             DefaultDynamicTPRSI,
		KeyOnePositionPerPair:       0,

		"apalancamiento_estable":       10,
		"margen_usdt_estable":          50,
		"tp_fijo_usdt_estable":         3,
		"sl_porcentaje_estable":        DefaultStopLossPct,
		"breakeven_porcentaje_estable": DefaultBreakevenTriggerPct,
		"apalancamiento_volatil":       5,
		"margen_usdt_volatil":          30,
		"tp_fijo_usdt_volatil":         2,
		"sl_porcentaje_volatil":        DefaultStopLossPct,
		"breakeven_porcentaje_volatil": DefaultBreakevenTriggerPct,
	}
}

// Strategy bundles the pure components derived from one configuration.
type Strategy struct {
	Config             domain.Configuration
	Periods            indicator.Periods
	Resolver           *ParameterResolver
	Detector           *SignalDetector
	Engine             *PositionEngine
	OnePositionPerPair bool
}

// NewStrategy validates cfg and builds the components. The configuration is
// copied so later edits to the caller's map have no effect.
func NewStrategy(cfg domain.Configuration, stablePairs []string) (*Strategy, error) {
	if err := cfg.Require(RequiredConfigKeys()...); err != nil {
		return nil, err
	}
	periods := indicator.PeriodsFromConfig(cfg)
	if err := periods.Validate(); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalidConfiguration, "", "invalid indicator periods", err)
	}

	cfg = cfg.Clone()
	return &Strategy{
		Config:             cfg,
		Periods:            periods,
		Resolver:           NewParameterResolver(stablePairs),
		Detector:           NewSignalDetector(SignalSettingsFromConfig(cfg)),
		Engine:             NewPositionEngine(cfg.GetOr(KeyDynamicTPRSI, DefaultDynamicTPRSI)),
		OnePositionPerPair: cfg.GetOr(KeyOnePositionPerPair, 0) != 0,
	}, nil
}
