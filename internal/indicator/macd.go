package indicator

// MACD returns the MACD line, its signal line and the histogram.
// EMAs are seeded with the first close, so all three outputs are valid from
// index slow-1.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line, sig, hist = nanSeries(n), nanSeries(n), nanSeries(n)
	if fast <= 0 || slow <= 0 || signal <= 0 || slow < 2 || fast > slow || n < slow {
		return line, sig, hist
	}

	kFast := 2 / float64(fast+1)
	kSlow := 2 / float64(slow+1)
	kSig := 2 / float64(signal+1)

	emaFast, emaSlow := closes[0], closes[0]
	var emaSig float64
	for i := 1; i < n; i++ {
		emaFast = (closes[i]-emaFast)*kFast + emaFast
		emaSlow = (closes[i]-emaSlow)*kSlow + emaSlow
		if i < slow-1 {
			continue
		}
		m := emaFast - emaSlow
		if i == slow-1 {
			emaSig = m
		} else {
			emaSig = (m-emaSig)*kSig + emaSig
		}
		line[i] = m
		sig[i] = emaSig
		hist[i] = m - emaSig
	}
	return line, sig, hist
}
