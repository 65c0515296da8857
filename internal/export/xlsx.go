package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/opslynx/patchlynx/pkg/models"
	"github.com/opslynx/patchlynx/pkg/utils"
)

// XLSXSink writes one workbook per run with one sheet per non-empty record
// set. Every cell is written as text so spreadsheet software does not
// reinterpret build numbers and vendor ids as numerics. If the workbook
// cannot be produced the sink degrades to CSV instead of failing the run.
type XLSXSink struct {
	cfg    Config
	logger *logrus.Logger
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Export(ctx context.Context, run *models.RunResult) ([]string, error) {
	tbls := tables(run)
	if len(tbls) == 0 {
		s.logger.Warn("Run produced no records, nothing to export")
		return nil, nil
	}
	if err := utils.EnsureDir(s.cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	path := filepath.Join(s.cfg.OutputDir, filename(s.cfg, run.StartTime, "PatchReport", "xlsx"))
	if err := s.writeWorkbook(path, tbls); err != nil {
		s.logger.Warnf("Spreadsheet export unavailable (%v), falling back to CSV", err)
		fallback := &CSVSink{cfg: s.cfg, logger: s.logger}
		return fallback.Export(ctx, run)
	}

	s.logger.Infof("Exported workbook %s", path)
	return []string{path}, nil
}

func (s *XLSXSink) writeWorkbook(path string, tbls []table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, tbl := range tbls {
		sheet := tbl.Name
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}

		for col, h := range tbl.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, h); err != nil {
				return err
			}
		}
		last, err := excelize.CoordinatesToCellName(len(tbl.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}

		for row, values := range tbl.Rows {
			for col, v := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row+2)
				if err != nil {
					return err
				}
				if err := f.SetCellStr(sheet, cell, v); err != nil {
					return err
				}
			}
		}
	}

	return f.SaveAs(path)
}
