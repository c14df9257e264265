package domain

// CategoryTotals maps a category to its summed seconds.
type CategoryTotals map[Category]int64

// Sum returns the grand total across all categories.
func (t CategoryTotals) Sum() int64 {
	var total int64
	for _, s := range t {
		total += s
	}
	return total
}

// DailySummary aggregates the closed entries that started on one local day.
type DailySummary struct {
	Date         string         `json:"date"`
	Entries      []*TimeEntry   `json:"entries"`
	Totals       CategoryTotals `json:"totals"`
	TotalSeconds int64          `json:"total_seconds"`
}

// TodaySummary holds today's closed-entry totals and the running entry, if any.
// Running time is never folded into Totals.
type TodaySummary struct {
	Date         string         `json:"date"`
	Totals       CategoryTotals `json:"totals"`
	TotalSeconds int64          `json:"total_seconds"`
	Running      *TimeEntry     `json:"running,omitempty"`
}
