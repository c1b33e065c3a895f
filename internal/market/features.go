package market

import (
	"math"

	"github.com/markcheno/go-talib"
)

const (
	rsiPeriod = 14
	emaPeriod = 10
)

// FeatureCount is the fixed length of every observation feature vector.
// The policy's parameter shape depends on it.
const FeatureCount = 5

// Feature vector layout, all values roughly unit scale:
//
//	0: one-bar return
//	1: window return
//	2: rolling volatility of one-bar returns
//	3: RSI(14) rescaled from [0,100] to [-1,1]
//	4: distance of the last price from EMA(10)
func computeFeatures(prices []float64) []float64 {
	n := len(prices)
	last := prices[n-1]

	features := make([]float64, FeatureCount)
	features[0] = ret(prices[n-2], last)
	features[1] = ret(prices[0], last)
	features[2] = volatility(prices)

	rsi := talib.Rsi(prices, rsiPeriod)
	features[3] = rsi[n-1]/50 - 1

	ema := talib.Ema(prices, emaPeriod)
	if e := ema[n-1]; e > 0 {
		features[4] = (last - e) / e
	}

	for i, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			features[i] = 0
		}
	}

	return features
}

func ret(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

func volatility(prices []float64) float64 {
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, ret(prices[i-1], prices[i]))
	}

	m := mean(returns)
	var ss float64
	for _, r := range returns {
		d := r - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(returns)))
}
