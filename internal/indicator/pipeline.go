package indicator

import (
	"math"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

// Default periods. ADXPeriodDefault applies when adx_periodo is not configured.
const (
	RSIPeriodDefault  = 14
	MAFastDefault     = 10
	MAMediumDefault   = 55
	MASlowDefault     = 200
	ADXPeriodDefault  = 14
	MACDFastPeriod    = 12
	MACDSlowPeriod    = 26
	MACDSignalPeriod  = 9
	VolumeWindowCount = 10
)

// Configuration keys for periods.
const (
	KeyRSIPeriod      = "rsi_periodo"
	KeyMAFastPeriod   = "ma_rapida_periodo"
	KeyMAMediumPeriod = "ma_media_periodo"
	KeyMASlowPeriod   = "ma_lenta_periodo"
	KeyADXPeriod      = "adx_periodo"
)

type Periods struct {
	RSI        int `json:"rsi"`
	MAFast     int `json:"ma_fast"`
	MAMedium   int `json:"ma_medium"`
	MASlow     int `json:"ma_slow"`
	ADX        int `json:"adx"`
	MACDFast   int `json:"macd_fast"`
	MACDSlow   int `json:"macd_slow"`
	MACDSignal int `json:"macd_signal"`
}

func DefaultPeriods() Periods {
	return Periods{
		RSI:        RSIPeriodDefault,
		MAFast:     MAFastDefault,
		MAMedium:   MAMediumDefault,
		MASlow:     MASlowDefault,
		ADX:        ADXPeriodDefault,
		MACDFast:   MACDFastPeriod,
		MACDSlow:   MACDSlowPeriod,
		MACDSignal: MACDSignalPeriod,
	}
}

// PeriodsFromConfig reads the configured periods. Missing keys keep their
// defaults; the caller is expected to have enforced required keys already.
func PeriodsFromConfig(cfg domain.Configuration) Periods {
	p := DefaultPeriods()
	p.RSI = int(cfg.GetOr(KeyRSIPeriod, float64(p.RSI)))
	p.MAFast = int(cfg.GetOr(KeyMAFastPeriod, float64(p.MAFast)))
	p.MAMedium = int(cfg.GetOr(KeyMAMediumPeriod, float64(p.MAMedium)))
	p.MASlow = int(cfg.GetOr(KeyMASlowPeriod, float64(p.MASlow)))
	p.ADX = int(cfg.GetOr(KeyADXPeriod, float64(p.ADX)))
	return p
}

func (p Periods) Validate() error {
	checks := []struct {
		name  string
		value int
		min   int
	}{
		{"rsi", p.RSI, 1},
		{"ma_fast", p.MAFast, 1},
		{"ma_medium", p.MAMedium, 1},
		{"ma_slow", p.MASlow, 1},
		{"adx", p.ADX, 2},
		{"macd_fast", p.MACDFast, 1},
		{"macd_slow", p.MACDSlow, 2},
		{"macd_signal", p.MACDSignal, 1},
	}
	for _, c := range checks {
		if c.value < c.min {
			return domain.Errorf(domain.ErrCodeCompute, "period %s must be >= %d, got %d", c.name, c.min, c.value)
		}
	}
	if p.MACDFast > p.MACDSlow {
		return domain.Errorf(domain.ErrCodeCompute, "macd fast period %d exceeds slow period %d", p.MACDFast, p.MACDSlow)
	}
	return nil
}

// Max is the longest configured period.
func (p Periods) Max() int {
	m := p.RSI
	for _, v := range []int{p.MAFast, p.MAMedium, p.MASlow, p.ADX, p.MACDFast, p.MACDSlow, p.MACDSignal} {
		if v > m {
			m = v
		}
	}
	return m
}

// StartIndex is the first candle index at which every indicator is valid.
// It is Max()-1 unless RSI or ADX, whose warm-up exceeds their period, need
// more history than the longest moving average.
func (p Periods) StartIndex() int {
	start := p.Max() - 1
	if p.RSI > start {
		start = p.RSI
	}
	if adx := 2 * (p.ADX - 1); adx > start {
		start = adx
	}
	return start
}

// Compute turns candles into indicator frames. Frame j describes candle
// j+StartIndex(). Sequences too short for the warm-up yield no frames.
func Compute(candles []domain.Candle, p Periods) ([]domain.IndicatorFrame, error) {
	if len(candles) == 0 {
		return []domain.IndicatorFrame{}, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := p.StartIndex()
	if len(candles) <= start {
		return []domain.IndicatorFrame{}, nil
	}

	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	rsi := RSI(closes, p.RSI)
	maFast := SMA(closes, p.MAFast)
	maMedium := SMA(closes, p.MAMedium)
	maSlow := SMA(closes, p.MASlow)
	adx := ADX(highs, lows, closes, p.ADX)
	_, _, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)

	frames := make([]domain.IndicatorFrame, 0, n-start)
	for i := start; i < n; i++ {
		f := domain.IndicatorFrame{
			Time:     candles[i].Time,
			Close:    closes[i],
			Volume:   candles[i].Volume,
			RSI:      rsi[i],
			MAFast:   maFast[i],
			MAMedium: maMedium[i],
			MASlow:   maSlow[i],
			ADX:      adx[i],
			Momentum: hist[i],
		}
		if hasNaN(f) {
			return nil, domain.Errorf(domain.ErrCodeCompute, "indicator not warmed up at candle %d (time %d)", i, candles[i].Time)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Latest returns the most recent frame.
func Latest(frames []domain.IndicatorFrame) (domain.IndicatorFrame, bool) {
	if len(frames) == 0 {
		return domain.IndicatorFrame{}, false
	}
	return frames[len(frames)-1], true
}

func hasNaN(f domain.IndicatorFrame) bool {
	for _, v := range []float64{f.RSI, f.MAFast, f.MAMedium, f.MASlow, f.ADX, f.Momentum} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
