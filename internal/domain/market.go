package domain

// Candle is one OHLCV bar. Time is the bar open time in unix milliseconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// IndicatorFrame holds every indicator value computed for a single candle.
type IndicatorFrame struct {
	Time     int64   `json:"time"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	RSI      float64 `json:"rsi"`
	MAFast   float64 `json:"ma_fast"`
	MAMedium float64 `json:"ma_medium"`
	MASlow   float64 `json:"ma_slow"`
	ADX      float64 `json:"adx"`
	Momentum float64 `json:"momentum"` // MACD histogram
}

type Ticker struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Time      int64   `json:"time"`
}
