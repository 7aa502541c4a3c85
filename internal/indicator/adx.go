package indicator

import "math"

// ADX is the Average Directional Index. Directional movement is smoothed over
// period-1 bars before the first DX, and the first ADX averages period DX
// values, so the first valid index is 2*(period-1).
func ADX(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if period < 2 || len(high) != n || len(low) != n || n <= 2*(period-1) {
		return out
	}

	p := float64(period)
	var atr, dmPlus, dmMinus float64
	var adxSum, adx float64
	for i := 1; i < n; i++ {
		tr, up, down := directional(high, low, closes, i)
		if i < period {
			atr += tr
			dmPlus += up
			dmMinus += down
		} else {
			atr = atr - atr/p + tr
			dmPlus = dmPlus - dmPlus/p + up
			dmMinus = dmMinus - dmMinus/p + down
		}
		if i < period-1 {
			continue
		}

		dx := dxValue(atr, dmPlus, dmMinus)
		switch {
		case i < 2*(period-1):
			adxSum += dx
		case i == 2*(period-1):
			adx = (adxSum + dx) / p
			out[i] = adx
		default:
			adx = (adx*(p-1) + dx) / p
			out[i] = adx
		}
	}
	return out
}

func directional(high, low, closes []float64, i int) (tr, up, down float64) {
	tr = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))
	upMove := high[i] - high[i-1]
	downMove := low[i-1] - low[i]
	if upMove > downMove && upMove > 0 {
		up = upMove
	}
	if downMove > upMove && downMove > 0 {
		down = downMove
	}
	return tr, up, down
}

func dxValue(atr, dmPlus, dmMinus float64) float64 {
	if atr == 0 {
		return 0
	}
	diPlus := 100 * dmPlus / atr
	diMinus := 100 * dmMinus / atr
	if diPlus+diMinus == 0 {
		return 0
	}
	return 100 * math.Abs(diPlus-diMinus) / (diPlus + diMinus)
}
