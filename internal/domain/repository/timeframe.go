package repository

// Timeframe is the bar resolution a price query is aggregated to.
type Timeframe string

const (
	TFDaily  Timeframe = "1d"
	TFWeekly Timeframe = "1w"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TFDaily, TFWeekly:
		return true
	default:
		return false
	}
}

// NormalizeTimeframe converts raw string to a valid timeframe (or daily).
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return TFDaily
}
