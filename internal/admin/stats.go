package admin

import (
	"context"
	"fmt"

	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

// Tables the inspection endpoint reports on.
var inspectedTables = []string{
	"users",
	"tracks",
	"albums",
	"comments",
	"track_likes",
	"bands",
	"band_members",
	"media",
	"notifications",
	"subscriptions",
	"subscription_plans",
}

// TableStats is one row of the inspection report.
type TableStats struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// DatabaseStats summarizes table sizes and the generation pipeline state.
type DatabaseStats struct {
	Tables         []TableStats     `json:"tables"`
	TracksByStatus map[string]int64 `json:"tracks_by_status"`
}

// Stats reports per-table row counts plus a generation status breakdown.
func (s *Service) Stats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{
		Tables:         make([]TableStats, 0, len(inspectedTables)),
		TracksByStatus: map[string]int64{},
	}
	for _, table := range inspectedTables {
		var count int64
		if err := s.inspect.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("count %s", table))
		}
		stats.Tables = append(stats.Tables, TableStats{Table: table, Rows: count})
	}

	byStatus, err := s.trackCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats.TracksByStatus = byStatus
	return stats, nil
}

func (s *Service) trackCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := s.inspect.WithContext(ctx).
		Table("tracks").
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tracks by status")
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
