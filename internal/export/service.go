package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
	"github.com/avelis/receiptlens/internal/repository"
)

// Service produces downloadable snapshots of the record store.
type Service struct {
	store  repository.RecordStore
	logger *slog.Logger
}

func NewService(store repository.RecordStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

var exportHeaders = []string{
	"Transaction Date",
	"Vendor",
	"Category",
	"Amount",
	"Label Source",
	"Receipt Text",
}

// Export renders the filtered records in the requested format and names
// the file after the export instant.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
func (s *Service) Export(ctx context.Context, format string, filter repository.ListFilter) ([]byte, string, error) {
	filter = normalizeWindow(filter)

	stamp := time.Now().UTC().Format("20060102-150405")
	switch strings.ToLower(format) {
	case "", "xlsx":
		data, err := s.exportXLSX(ctx, filter)
		return data, "records-" + stamp + ".xlsx", err
	case "csv":
		data, err := s.exportCSV(ctx, filter)
		return data, "records-" + stamp + ".csv", err
	default:
		return nil, "", common.NewAppError("EXPORT_BAD_FORMAT", fmt.Sprintf("unsupported export format %q", format), common.ErrInvalidInput)
	}
}

func (s *Service) exportXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	recs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Records"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		values := rowValues(rec)
		write(1, values[0])
		write(2, values[1])
		write(3, values[2])
		if rec.Amount != nil {
			// numeric cell, not the formatted string
			write(4, *rec.Amount)
		}
		write(5, values[4])
		write(6, values[5])
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // vendor
	_ = f.SetColWidth(sheet, "C", "C", 16) // category
	_ = f.SetColWidth(sheet, "D", "D", 12) // amount
	_ = f.SetColWidth(sheet, "E", "E", 18) // source
	_ = f.SetColWidth(sheet, "F", "F", 60) // text

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) exportCSV(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	recs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	for _, rec := range recs {
		if err := w.Write(rowValues(rec)); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	s.logger.Info("export.csv.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func rowValues(rec *entity.Record) []string {
	date := ""
	if rec.TxDate != nil {
		date = rec.TxDate.Format("2006-01-02")
	}
	vendor := ""
	if rec.Vendor != nil {
		vendor = *rec.Vendor
	}
	amount := ""
	if rec.Amount != nil {
		amount = fmt.Sprintf("%.2f", *rec.Amount)
	}
	return []string{
		date,
		vendor,
		string(rec.Category),
		amount,
		string(rec.Source),
		truncate(rec.RawText, 140),
	}
}

func normalizeWindow(filter repository.ListFilter) repository.ListFilter {
	if filter.FromDate != nil {
		f := time.Date(filter.FromDate.Year(), filter.FromDate.Month(), filter.FromDate.Day(), 0, 0, 0, 0, time.UTC)
		filter.FromDate = &f
	}
	if filter.ToDate != nil {
		t := time.Date(filter.ToDate.Year(), filter.ToDate.Month(), filter.ToDate.Day(), 0, 0, 0, 0, time.UTC)
		filter.ToDate = &t
	}
	if filter.FromDate != nil && filter.ToDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		filter.ToDate = &t
	}
	return filter
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
