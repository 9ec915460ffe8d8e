package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/xuri/excelize/v2"
)

const historySheet = "History"

var historyHeaders = []string{
	"ID", "Status", "Requester", "Companion", "From", "Destination",
	"Date", "Time", "Cancellation Reason", "Created At", "Updated At",
}

// ExportService renders views as spreadsheets.
type ExportService struct {
	queries *WalkQueryService
}

func NewExportService(queries *WalkQueryService) *ExportService {
	return &ExportService{queries: queries}
}

// ExportHistory writes the viewer's history view to an XLSX workbook.
func (s *ExportService) ExportHistory(ctx context.Context, viewerID string) ([]byte, error) {
	history, err := s.queries.ListHistory(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	// A new workbook starts with one default sheet; reuse it.
	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return nil, fmt.Errorf("error naming sheet: %v", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %v", err)
	}
	for col, h := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(historySheet, cell, h)
		f.SetCellStyle(historySheet, cell, cell, headerStyle)
	}

	for i, v := range history {
		row := i + 2
		for col, value := range historyRow(v) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(historySheet, cell, value)
		}
	}
	f.SetColWidth(historySheet, "A", "A", 38)
	f.SetColWidth(historySheet, "E", "F", 25)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %v", err)
	}
	return buf.Bytes(), nil
}

func historyRow(v models.WalkRequestView) []interface{} {
	const stamp = "2006-01-02 15:04"
	return []interface{}{
		v.ID,
		string(v.Status),
		v.RequesterName,
		v.CompanionName,
		v.FromLocation,
		v.Destination,
		v.WalkDate.Format(models.WalkDateLayout),
		v.WalkTime,
		v.CancellationReason,
		v.CreatedAt.Format(stamp),
		v.UpdatedAt.Format(stamp),
	}
}
