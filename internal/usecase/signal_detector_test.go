package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/usecase"
)

func TestSignalDetector_Detect(t *testing.T) {
	d := usecase.NewSignalDetector(usecase.SignalSettings{VolumeThreshold: 2, Oversold: 30, Overbought: 70})

	// Nine quiet candles then the latest one; mean of the ten is 13.
	quiet := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10}
	spike := append(append([]float64(nil), quiet...), 40)
	flat := append(append([]float64(nil), quiet...), 10)

	tests := []struct {
		name    string
		rsi     float64
		volumes []float64
		want    domain.Side
		ok      bool
	}{
		{"oversold with volume is long", 25, spike, domain.SideLong, true},
		{"rsi on oversold threshold is long", 30, spike, domain.SideLong, true},
		{"overbought with volume is short", 75, spike, domain.SideShort, true},
		{"rsi on overbought threshold is short", 70, spike, domain.SideShort, true},
		{"neutral rsi", 50, spike, "", false},
		{"oversold without volume", 25, flat, "", false},
		{"no volume history", 25, nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last float64
			if len(tt.volumes) > 0 {
				last = tt.volumes[len(tt.volumes)-1]
			}
			side, ok := d.Detect(domain.IndicatorFrame{RSI: tt.rsi, Volume: last}, tt.volumes)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, side)
		})
	}
}

func TestSignalDetector_VolumeMustExceedThreshold(t *testing.T) {
	d := usecase.NewSignalDetector(usecase.SignalSettings{VolumeThreshold: 1, Oversold: 30, Overbought: 70})

	// Volume equal to the mean is not high.
	volumes := []float64{10, 10, 10}
	_, ok := d.Detect(domain.IndicatorFrame{RSI: 20, Volume: 10}, volumes)
	assert.False(t, ok)
}

func TestSignalDetector_OverlappingThresholdsPreferLong(t *testing.T) {
	d := usecase.NewSignalDetector(usecase.SignalSettings{VolumeThreshold: 1, Oversold: 60, Overbought: 40})

	side, ok := d.Detect(domain.IndicatorFrame{RSI: 50, Volume: 30}, []float64{10, 10, 30})
	assert.True(t, ok)
	assert.Equal(t, domain.SideLong, side)
}

func TestRecentVolumes(t *testing.T) {
	candles := make([]domain.Candle, 15)
	for i := range candles {
		candles[i].Volume = float64(i)
	}
	assert.Equal(t, []float64{12, 13, 14}, usecase.RecentVolumes(candles, 3))
	assert.Len(t, usecase.RecentVolumes(candles[:4], 10), 4)
	assert.InDelta(t, 13.0, usecase.AverageVolume([]float64{12, 13, 14}), 1e-12)
	assert.Zero(t, usecase.AverageVolume(nil))
}

func TestSizingAndInitialStopLoss(t *testing.T) {
	params := domain.TradeParameters{Leverage: 10, Margin: 50, StopLossPct: 0.03}

	size := usecase.PositionSize(params, 100)
	assert.InDelta(t, 5.0, size, 1e-12)

	// A stop hit loses Margin*StopLossPct = 1.5 USDT.
	long := usecase.InitialStopLoss(domain.SideLong, 100, size, params)
	short := usecase.InitialStopLoss(domain.SideShort, 100, size, params)
	assert.InDelta(t, 99.7, long, 1e-9)
	assert.InDelta(t, 100.3, short, 1e-9)
	assert.InDelta(t, -1.5, (long-100)*size, 1e-9)

	assert.Zero(t, usecase.PositionSize(params, 0))
}
