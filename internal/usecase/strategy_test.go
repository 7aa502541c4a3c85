package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/indicator"
	"github.com/vitos/crypto_scalp_sim/internal/usecase"
)

func TestNewStrategy_Defaults(t *testing.T) {
	s, err := usecase.NewStrategy(usecase.DefaultConfiguration(), nil)
	require.NoError(t, err)

	assert.Equal(t, indicator.DefaultPeriods(), s.Periods)
	assert.Equal(t, 199, s.Periods.StartIndex())
	assert.Equal(t, usecase.DefaultDynamicTPRSI, s.Engine.DynamicTPLevel())
	assert.False(t, s.OnePositionPerPair)
}

func TestNewStrategy_MissingKeys(t *testing.T) {
	cfg := usecase.DefaultConfiguration()
	delete(cfg, "margen_usdt_volatil")
	delete(cfg, "volumen_umbral")

	_, err := usecase.NewStrategy(cfg, nil)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidConfiguration))
	assert.Contains(t, err.Error(), "margen_usdt_volatil")
	assert.Contains(t, err.Error(), "volumen_umbral")
}

func TestNewStrategy_OptionalKeysMayBeAbsent(t *testing.T) {
	cfg := usecase.DefaultConfiguration()
	for _, k := range []string{"adx_periodo", "rsi_tp_dinamico", "una_posicion_por_par", "sl_porcentaje_estable", "tp_fijo_usdt_volatil"} {
		delete(cfg, k)
	}

	s, err := usecase.NewStrategy(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, indicator.ADXPeriodDefault, s.Periods.ADX)
}

func TestNewStrategy_InvalidPeriod(t *testing.T) {
	cfg := usecase.DefaultConfiguration()
	cfg["rsi_periodo"] = 0

	_, err := usecase.NewStrategy(cfg, nil)
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidConfiguration))
}

func TestNewStrategy_CopiesConfiguration(t *testing.T) {
	cfg := usecase.DefaultConfiguration()
	s, err := usecase.NewStrategy(cfg, nil)
	require.NoError(t, err)

	cfg["volumen_umbral"] = 99
	assert.Equal(t, 1.5, s.Config["volumen_umbral"])
}
