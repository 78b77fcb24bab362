package stats

import (
	"sort"

	"github.com/verte-zerg/retell/internal/model"
)

// TopMissed returns up to n keywords that were missed at least once, most
// missed first. Ties go to the lower hit rate, then alphabetical order.
func TopMissed(aggs []model.KeywordAggregate, n int) []model.KeywordAggregate {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.KeywordAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Missed > 0 {
			items = append(items, agg)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Missed != items[j].Missed {
			return items[i].Missed > items[j].Missed
		}
		hi, hj := hitRate(items[i]), hitRate(items[j])
		if hi != hj {
			return hi < hj
		}
		return items[i].Keyword < items[j].Keyword
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

func hitRate(agg model.KeywordAggregate) float64 {
	total := agg.Matched + agg.Missed
	if total == 0 {
		return 1.0
	}
	return float64(agg.Matched) / float64(total)
}
