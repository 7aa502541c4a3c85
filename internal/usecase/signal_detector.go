package usecase

import "github.com/vitos/crypto_scalp_sim/internal/domain"

const (
	KeyVolumeThreshold = "volumen_umbral"
	KeyRSIOversold     = "rsi_sobreventa"
	KeyRSIOverbought   = "rsi_sobrecompra"
)

type SignalSettings struct {
	VolumeThreshold float64
	Oversold        float64
	Overbought      float64
}

func SignalSettingsFromConfig(cfg domain.Configuration) SignalSettings {
	return SignalSettings{
		VolumeThreshold: cfg.GetOr(KeyVolumeThreshold, 0),
		Oversold:        cfg.GetOr(KeyRSIOversold, 0),
		Overbought:      cfg.GetOr(KeyRSIOverbought, 100),
	}
}

type SignalDetector struct {
	settings SignalSettings
}

func NewSignalDetector(settings SignalSettings) *SignalDetector {
	return &SignalDetector{settings: settings}
}

// Detect applies the entry rule to the latest frame. recentVolumes are the
// volumes of the last candles, the latest one included.
func (d *SignalDetector) Detect(frame domain.IndicatorFrame, recentVolumes []float64) (domain.Side, bool) {
	if len(recentVolumes) == 0 {
		return "", false
	}
	if frame.Volume <= AverageVolume(recentVolumes)*d.settings.VolumeThreshold {
		return "", false
	}

	// Oversold is checked first so it wins if both thresholds overlap.
	if frame.RSI <= d.settings.Oversold {
		return domain.SideLong, true
	}
	if frame.RSI >= d.settings.Overbought {
		return domain.SideShort, true
	}
	return "", false
}

func AverageVolume(volumes []float64) float64 {
	if len(volumes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range volumes {
		sum += v
	}
	return sum / float64(len(volumes))
}

// RecentVolumes returns the volumes of the last n candles.
func RecentVolumes(candles []domain.Candle, n int) []float64 {
	if n > len(candles) {
		n = len(candles)
	}
	out := make([]float64, 0, n)
	for _, c := range candles[len(candles)-n:] {
		out = append(out, c.Volume)
	}
	return out
}

// PositionSize is the quantity bought with margin at leverage.
func PositionSize(params domain.TradeParameters, entryPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	return params.Margin * params.Leverage / entryPrice
}

// InitialStopLoss places the stop so that a hit loses Margin*StopLossPct.
func InitialStopLoss(side domain.Side, entryPrice, size float64, params domain.TradeParameters) float64 {
	if size <= 0 {
		return entryPrice
	}
	distance := params.Margin * params.StopLossPct / size
	if side == domain.SideShort {
		return entryPrice + distance
	}
	return entryPrice - distance
}
