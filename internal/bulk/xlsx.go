package bulk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNotWorkbook is returned when an upload cannot be opened as a workbook.
var ErrNotWorkbook = errors.New("not an xlsx workbook")

// ReadXLSX reads the first sheet of a workbook into raw rows numbered by
// spreadsheet row. Blank rows and a leading header row are skipped.
func ReadXLSX(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrNotWorkbook)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	out := make([]RawRow, 0, len(rows))
	headerChecked := false
	for i, cells := range rows {
		tokens := make([]string, len(cells))
		blank := true
		for j, c := range cells {
			tokens[j] = strings.TrimSpace(c)
			if tokens[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if !headerChecked {
			headerChecked = true
			if isHeaderRow(tokens) {
				continue
			}
		}
		out = append(out, RawRow{Line: i + 1, Tokens: trimTrailingEmpty(tokens)})
	}
	return out, nil
}

// ParseXLSX reads a workbook and classifies its rows.
func (p *Parser) ParseXLSX(r io.Reader) (*Result, error) {
	rows, err := ReadXLSX(r)
	if err != nil {
		return nil, err
	}
	return p.ParseRows(rows), nil
}

// Template builds an empty workbook with the schema's column headers.
func Template(s Schema) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, h := range s.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if i >= s.MinColumns {
			h += " (optional)"
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, 20)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isHeaderRow(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	first := normalizeName(tokens[0])
	return first == "store" || first == "store name"
}

func trimTrailingEmpty(tokens []string) []string {
	end := len(tokens)
	for end > 0 && tokens[end-1] == "" {
		end--
	}
	return tokens[:end]
}
