package strategy

import (
	"strconv"

	"crossover-go/internal/signal"
)

// RateDecimals is the precision signal rates are reported with.
const RateDecimals = 4

// Crossover flags rows whose close sits strictly above the trailing simple
// moving average. The average is only defined once a full window of valid
// closes is available.
type Crossover struct {
	window int
}

// NewCrossover builds a crossover strategy over the given trailing window.
func NewCrossover(window int) *Crossover {
	if window <= 0 {
		window = 1
	}
	return &Crossover{window: window}
}

// Name returns the configured identifier for logging.
func (c *Crossover) Name() string { return "SMACrossover" }

// Window returns the trailing window length.
func (c *Crossover) Window() int { return c.window }

// Compute returns one row per price, in input order.
func (c *Crossover) Compute(prices []signal.Price) []signal.Row {
	rows := make([]signal.Row, len(prices))
	for i, p := range prices {
		row := signal.Row{Close: p.Close, CloseValid: p.Valid}
		if mean, ok := c.trailingMean(prices, i); ok {
			row.RollingMean = mean
			row.MeanValid = true
			if p.Close > mean {
				row.Signal = 1
			}
		}
		rows[i] = row
	}
	return rows
}

func (c *Crossover) trailingMean(prices []signal.Price, end int) (float64, bool) {
	start := end - c.window + 1
	if start < 0 {
		return 0, false
	}
	var sum float64
	for _, p := range prices[start : end+1] {
		if !p.Valid {
			return 0, false
		}
		sum += p.Close
	}
	return sum / float64(c.window), true
}

// SignalRate is the share of rows with a long signal over the whole series,
// leading rows without an average included, rounded to RateDecimals.
func SignalRate(rows []signal.Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	longs := 0
	for _, row := range rows {
		longs += row.Signal
	}
	return Round(float64(longs)/float64(len(rows)), RateDecimals)
}

// Round rounds to the given number of decimals using the shortest correctly
// rounded decimal form of x, ties to even.
func Round(x float64, decimals int) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', decimals, 64), 64)
	if err != nil {
		return x
	}
	return out
}
