package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DailyReportsRange is the table daily reports are appended to. Column A holds the date.
const DailyReportsRange = "DailyReports!A:L"

// ReportMirror appends one row per day to a spreadsheet table, skipping days already present.
type ReportMirror struct {
	repo       Repository
	sheetRange string
	logger     *zap.Logger
}

// NewReportMirror binds a mirror to sheetRange. An empty range means DailyReportsRange.
func NewReportMirror(repo Repository, sheetRange string, logger *zap.Logger) *ReportMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sheetRange == "" {
		sheetRange = DailyReportsRange
	}
	return &ReportMirror{repo: repo, sheetRange: sheetRange, logger: logger}
}

// Mirror appends row unless a row keyed by day already exists. It reports whether a row was written.
func (m *ReportMirror) Mirror(ctx context.Context, day string, row []interface{}) (bool, error) {
	existing, err := m.repo.ReadRange(ctx, m.sheetRange)
	if err != nil {
		return false, fmt.Errorf("mirror report %s: %w", day, err)
	}

	for _, r := range existing {
		if len(r) > 0 && fmt.Sprint(r[0]) == day {
			m.logger.Debug("report already mirrored", zap.String("day", day))
			return false, nil
		}
	}

	if err := m.repo.WriteRow(ctx, m.sheetRange, row); err != nil {
		return false, fmt.Errorf("mirror report %s: %w", day, err)
	}
	return true, nil
}
