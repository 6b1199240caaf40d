// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is the encoding of a tabular catalog file.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

var errEmptyTable = errors.New("table has no header row")

// FormatFromPath guesses the file format from the extension of the given path or URL path.
// Anything that is not recognized is treated as CSV.
func FormatFromPath(p string) Format {
	if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".tsv", ".tab":
		return FormatTSV
	default:
		return FormatCSV
	}
}

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

// Parse reads a Table of the given format from r. The sheet is only used for XLSX input; if
// empty, the first sheet of the workbook is read. All errors wrap ErrSourceUnreadable.
func Parse(r io.Reader, format Format, sheet string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r, sheet)
	case FormatTSV:
		rows, err = readDelimited(r, '\t')
	default:
		rows, err = readDelimited(r, ',')
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrSourceUnreadable, format, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, errEmptyTable)
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func readDelimited(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = book.Close() }()

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	return book.GetRows(sheet)
}
