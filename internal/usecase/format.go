package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).Round(6).String()
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func entryContext(pos *domain.Position, frame domain.IndicatorFrame, avgVolume float64) string {
	return fmt.Sprintf("Entry %s, size %s, SL %s, volume %s (avg %s), ADX %s",
		formatPrice(pos.EntryPrice),
		decimal.NewFromFloat(pos.Size).Round(6).String(),
		formatPrice(pos.StopLoss),
		formatAmount(frame.Volume),
		formatAmount(avgVolume),
		formatAmount(frame.ADX),
	)
}
