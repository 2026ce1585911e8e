package models

// GapClassification labels why a time range has no stored data.
type GapClassification int

const (
	GapUnexpected GapClassification = iota
	GapExpectedWeekend
	GapExpectedHoliday
	GapExpectedTradingHours
	GapMarketClosure
)

func (c GapClassification) String() string {
	switch c {
	case GapExpectedWeekend:
		return "expected_weekend"
	case GapExpectedHoliday:
		return "expected_holiday"
	case GapExpectedTradingHours:
		return "expected_trading_hours"
	case GapMarketClosure:
		return "market_closure"
	default:
		return "unexpected"
	}
}

// Expected reports whether the gap needs no fetch: the market simply was not
// producing data.
func (c GapClassification) Expected() bool {
	switch c {
	case GapExpectedWeekend, GapExpectedHoliday, GapExpectedTradingHours:
		return true
	default:
		return false
	}
}

// Gap is a classified hole in stored coverage. Never mutated after creation.
type Gap struct {
	Range                 TimeRange
	Classification        GapClassification
	EstimatedMissingUnits int
	Context               string
	Note                  string
}
