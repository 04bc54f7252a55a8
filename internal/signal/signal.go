// Package signal standardizes payloads shared between data loading and strategy layers.
package signal

// Price is a single close observation. Valid is false when the source cell
// could not be coerced to a number.
type Price struct {
	Close float64
	Valid bool
}

// Row is the per-observation output of a strategy.
type Row struct {
	Close       float64
	CloseValid  bool
	RollingMean float64
	MeanValid   bool // false until a full window of valid closes is available
	Signal      int  // 1 when close is strictly above its rolling mean, else 0
}

// Long reports whether the row carries a long bias.
func (r Row) Long() bool { return r.Signal == 1 }
