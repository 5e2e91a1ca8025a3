package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	xls "github.com/extrame/xls"
)

// legacy .xls exports from Spanish-locale Office are usually cp1252
var xlsCharsets = []string{"windows-1252", "utf-8", "iso-8859-1"}

// computeMaxCols finds the widest populated row; Row.LastCol is not reliable
// for sheets written by third-party tools.
func computeMaxCols(sheet *xls.WorkSheet) int {
	const maxScanCols = 256
	maxCols := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			continue
		}
		for j := maxCols; j < maxScanCols; j++ {
			if normalizeCell(row.Col(j)) != "" {
				maxCols = j + 1
			}
		}
	}
	if maxCols == 0 {
		maxCols = 1
	}
	return maxCols
}

// sheetRow returns nil for rows the sheet never stored; WorkSheet.Row
// dereferences those without checking.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func readXLS(r io.Reader, headerRow int) (out []map[string]string, err error) {
	if headerRow <= 0 {
		return nil, errors.New("headerRow must be 1-based and >= 1")
	}
	// the decoder indexes record data without bounds checks
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("xls: malformed workbook: %v", p)
		}
	}()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var wb *xls.WorkBook
	var lastErr error
	for _, cs := range xlsCharsets {
		wb, err = xls.OpenReader(bytes.NewReader(b), cs)
		if err == nil && wb != nil {
			break
		}
		lastErr = err
	}
	if wb == nil {
		if lastErr == nil {
			lastErr = errors.New("xls: failed to open workbook")
		}
		return nil, lastErr
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	maxCols := computeMaxCols(sheet)
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		cols := make([]string, maxCols)
		if row := sheetRow(sheet, i); row != nil {
			for j := range cols {
				cols[j] = normalizeCell(row.Col(j))
			}
		}
		rows = append(rows, cols)
	}

	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}
