// Package workbook reads the seven-sheet daily input workbook and writes
// the multi-sheet report workbook.
package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
)

// ReadTables loads every sheet and classifies it by title or header. When two
// sheets resolve to the same kind the first one wins.
func ReadTables(r io.Reader) (datanorm.Tables, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	cls := datanorm.NewClassifier()
	tables := make(datanorm.Tables)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		kind := cls.Classify(sheet, rows[0])
		if kind == "" {
			logger.Debug("workbook: skipping unrecognised sheet", "sheet", sheet)
			continue
		}
		if _, dup := tables[kind]; dup {
			logger.Warn("workbook: duplicate sheet ignored", "sheet", sheet, "kind", string(kind))
			continue
		}
		tables[kind] = datanorm.Table{Name: sheet, Header: rows[0], Rows: rows[1:]}
	}
	return tables, nil
}

// Read loads and normalizes a workbook into the domain input.
func Read(r io.Reader, opts datanorm.Options) (*domain.Input, error) {
	tables, err := ReadTables(r)
	if err != nil {
		return nil, err
	}
	return datanorm.Normalize(tables, opts)
}
