// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const testCSV = `place_name,state,district,latitude,longitude
New Delhi,Delhi,New Delhi,28.6139,77.2090
Mumbai,Maharashtra,Mumbai City,19.0760,72.8777
"Chennai, Central",Tamil Nadu,Chennai,13.0827,80.2707
`

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"India_Locations.csv", FormatCSV},
		{"/data/places.TSV", FormatTSV},
		{"places.tab", FormatTSV},
		{"places.xlsx", FormatXLSX},
		{"places.xlsm", FormatXLSX},
		{"https://example.com/places.xlsx?token=abc", FormatXLSX},
		{"https://example.com/export#places.tsv", FormatCSV},
		{"places", FormatCSV},
	}
	for _, tc := range tests {
		if got := FormatFromPath(tc.path); got != tc.want {
			t.Errorf("expected format for %q to be %s, got %s", tc.path, tc.want, got)
		}
	}
}

func TestParse(t *testing.T) {
	t.Run("CSV input is parsed", func(t *testing.T) {
		table, err := Parse(strings.NewReader(testCSV), FormatCSV, "")
		if err != nil {
			t.Fatalf("failed to parse CSV: %s", err)
		}
		if len(table.Header) != 5 {
			t.Errorf("expected 5 header columns, got %d", len(table.Header))
		}
		if len(table.Rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(table.Rows))
		}
		if table.Rows[2][0] != "Chennai, Central" {
			t.Errorf("expected quoted cell to be kept, got %q", table.Rows[2][0])
		}
	})
	t.Run("ragged CSV rows are accepted", func(t *testing.T) {
		input := "name,lat,lon\na,1,2\nb,3\nc,4,5,extra\n"
		table, err := Parse(strings.NewReader(input), FormatCSV, "")
		if err != nil {
			t.Fatalf("failed to parse CSV: %s", err)
		}
		if len(table.Rows[1]) != 2 || len(table.Rows[2]) != 4 {
			t.Errorf("expected ragged rows to be kept as is, got %v", table.Rows)
		}
	})
	t.Run("TSV input is parsed", func(t *testing.T) {
		input := "place_name\tlat\tlon\nPune\t18,5204\t73,8567\n"
		table, err := Parse(strings.NewReader(input), FormatTSV, "")
		if err != nil {
			t.Fatalf("failed to parse TSV: %s", err)
		}
		cat, err := Normalize(table)
		if err != nil {
			t.Fatalf("failed to normalize TSV table: %s", err)
		}
		if cat.Record(0).Latitude != 18.5204 {
			t.Errorf("expected latitude 18.5204, got %f", cat.Record(0).Latitude)
		}
	})
	t.Run("XLSX input is parsed", func(t *testing.T) {
		buf := testWorkbook(t, "")
		table, err := Parse(buf, FormatXLSX, "")
		if err != nil {
			t.Fatalf("failed to parse XLSX: %s", err)
		}
		if len(table.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(table.Rows))
		}
		if table.Rows[1][0] != "Mumbai" {
			t.Errorf("expected second row to be Mumbai, got %q", table.Rows[1][0])
		}
	})
	t.Run("XLSX sheets are selectable", func(t *testing.T) {
		buf := testWorkbook(t, "Places")
		table, err := Parse(buf, FormatXLSX, "Places")
		if err != nil {
			t.Fatalf("failed to parse XLSX: %s", err)
		}
		if len(table.Rows) != 2 {
			t.Errorf("expected 2 rows, got %d", len(table.Rows))
		}
	})
	t.Run("a missing XLSX sheet fails", func(t *testing.T) {
		buf := testWorkbook(t, "")
		if _, err := Parse(buf, FormatXLSX, "DoesNotExist"); !errors.Is(err, ErrSourceUnreadable) {
			t.Errorf("expected ErrSourceUnreadable, got %v", err)
		}
	})
	t.Run("broken XLSX input fails", func(t *testing.T) {
		if _, err := Parse(strings.NewReader("not a zip file"), FormatXLSX, ""); !errors.Is(err, ErrSourceUnreadable) {
			t.Errorf("expected ErrSourceUnreadable, got %v", err)
		}
	})
	t.Run("empty input fails", func(t *testing.T) {
		if _, err := Parse(strings.NewReader(""), FormatCSV, ""); !errors.Is(err, ErrSourceUnreadable) {
			t.Errorf("expected ErrSourceUnreadable, got %v", err)
		}
	})
}

// testWorkbook returns a workbook with two places. If sheet is not empty the places are written
// to a new sheet of that name instead of the default sheet.
func testWorkbook(t *testing.T, sheet string) *bytes.Buffer {
	t.Helper()
	book := excelize.NewFile()
	t.Cleanup(func() { _ = book.Close() })

	target := "Sheet1"
	if sheet != "" {
		if _, err := book.NewSheet(sheet); err != nil {
			t.Fatalf("failed to create sheet: %s", err)
		}
		target = sheet
	}
	rows := [][]any{
		{"place_name", "state", "district", "latitude", "longitude"},
		{"New Delhi", "Delhi", "New Delhi", 28.6139, 77.209},
		{"Mumbai", "Maharashtra", "Mumbai City", 19.076, 72.8777},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to compute cell name: %s", err)
		}
		if err = book.SetSheetRow(target, cell, &row); err != nil {
			t.Fatalf("failed to write row: %s", err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %s", err)
	}
	return buf
}
