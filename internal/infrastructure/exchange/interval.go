package exchange

import "fmt"

// Intervals are configured in Binance notation ("5m", "1h", "1d").
var bybitIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
	"1w":  "W",
	"1M":  "M",
}

func ValidInterval(interval string) bool {
	_, ok := bybitIntervals[interval]
	return ok
}

func toBybitInterval(interval string) (string, error) {
	v, ok := bybitIntervals[interval]
	if !ok {
		return "", fmt.Errorf("unsupported interval: %s", interval)
	}
	return v, nil
}
