package models

import "time"

// Observation is the normalized market feature vector for one decision cycle.
// It is immutable once produced: the aggregator hands out fresh copies and
// consumers must not mutate the slices.
type Observation struct {
	Symbol    string
	Timestamp time.Time

	// Prices holds the closing prices of the lookback window, oldest first.
	Prices []float64
	// Volumes holds the volumes aligned with Prices.
	Volumes []float64
	// Features is the derived feature vector fed to the policy. Its layout is
	// fixed by the aggregator's feature builder and matches the checkpoint's
	// FeatureDim.
	Features []float64
}

// LastPrice returns the most recent price in the window, or 0 when empty.
func (o Observation) LastPrice() float64 {
	if len(o.Prices) == 0 {
		return 0
	}
	return o.Prices[len(o.Prices)-1]
}

// Clone returns a deep copy safe to retain across cycles.
func (o Observation) Clone() Observation {
	c := Observation{
		Symbol:    o.Symbol,
		Timestamp: o.Timestamp,
		Prices:    make([]float64, len(o.Prices)),
		Volumes:   make([]float64, len(o.Volumes)),
		Features:  make([]float64, len(o.Features)),
	}
	copy(c.Prices, o.Prices)
	copy(c.Volumes, o.Volumes)
	copy(c.Features, o.Features)
	return c
}
