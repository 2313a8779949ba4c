package dashboardservice

import (
	"context"
	"fmt"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/xuri/excelize/v2"
)

const standingsSheet = "Standings"

// ExportStandings builds an xlsx standings workbook from the latest published
// snapshot. Entities with no published snapshot yet return an error.
func (s *DashboardService) ExportStandings(ctx context.Context, entityID dashboardtypes.EntityID) ([]byte, error) {
	var workbook []byte
	err := s.withTelemetry(ctx, "ExportStandings", entityID, func(ctx context.Context) error {
		snapshot, exists := s.LatestSnapshot(entityID)
		if !exists {
			return fmt.Errorf("no snapshot published for entity %s", entityID)
		}
		var err error
		workbook, err = ExportStandingsWorkbook(snapshot)
		return err
	})
	if err != nil {
		return nil, err
	}
	return workbook, nil
}

// ExportStandingsWorkbook renders a snapshot's board into an xlsx workbook
// with one row per ranked member plus a summary block.
func ExportStandingsWorkbook(snapshot *dashboardtypes.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", standingsSheet)

	headers := []string{"Rank", "Member", "Tenure", "Messages", "Voice", "Composite"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(standingsSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, entry := range snapshot.Board {
		row := i + 2
		values := []any{
			entry.Rank,
			string(entry.MemberID),
			entry.TenureScore,
			entry.MessageScore,
			entry.VoiceScore,
			entry.CompositeScore,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(standingsSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	summaryRow := len(snapshot.Board) + 3
	summary := [][]any{
		{"Generated", snapshot.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Members scored", snapshot.Statistics.Count},
		{"Members skipped", snapshot.SkippedMembers},
		{"Average composite", snapshot.Statistics.Composite.Avg},
	}
	for i, pair := range summary {
		for col, value := range pair {
			cell, err := excelize.CoordinatesToCellName(col+1, summaryRow+i)
			if err != nil {
				return nil, fmt.Errorf("failed to compute summary cell: %w", err)
			}
			if err := f.SetCellValue(standingsSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write summary: %w", err)
			}
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buffer.Bytes(), nil
}
