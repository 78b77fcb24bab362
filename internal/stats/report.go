package stats

import (
	"context"

	"github.com/verte-zerg/retell/internal/model"
	"github.com/verte-zerg/retell/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Records []model.PracticeRecord
	Curve   []float64
	Missed  []model.KeywordAggregate
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.HistoryConfig) (Report, error) {
	records, err := st.ListRecords(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	window := cfg.CurveWindow
	if window <= 0 {
		window = len(records)
	}
	aggs, err := st.MissedKeywords(ctx, window, cfg.StoryID)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Records: records,
		Curve:   MovingAverage(Scores(records), cfg.CurveWindow),
		Missed:  TopMissed(aggs, cfg.MissedTop),
	}, nil
}
