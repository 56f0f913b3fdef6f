package domain

import "time"

// Bar is one OHLCV row of the input dataset. OpenTime is the event time used
// to timestamp the step that consumes this bar.
type Bar struct {
	Symbol   string
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
