// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package catalog turns loosely structured tabular place data into an immutable, validated
// sequence of place records.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wneessen/geonear/internal/geo"
)

var (
	// ErrSchemaUnresolved is returned if no latitude/longitude column pair could be identified.
	ErrSchemaUnresolved = errors.New("could not identify latitude/longitude columns")

	// ErrEmptyDataset is returned if no row survived normalization.
	ErrEmptyDataset = errors.New("no valid place records in dataset")

	// ErrSourceUnreadable is returned if the underlying source could not be read or parsed.
	ErrSourceUnreadable = errors.New("catalog source unreadable")
)

// Field is a semantic display field that is resolved from one of several column aliases.
type Field int

const (
	FieldState Field = iota
	FieldDistrict
	FieldLocation
)

// fieldAliases lists the accepted column names per display field in order of priority.
var fieldAliases = map[Field][]string{
	FieldState:    {"state", "statename"},
	FieldDistrict: {"district", "districtname"},
	FieldLocation: {"place_name", "village", "villagename", "location"},
}

var (
	latitudeAliases  = []string{"latitude", "lat"}
	longitudeAliases = []string{"longitude", "lon", "lng", "long"}
)

func (f Field) String() string {
	switch f {
	case FieldState:
		return "state"
	case FieldDistrict:
		return "district"
	case FieldLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Table is raw tabular input: a header row followed by data rows. Rows may be shorter or longer
// than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Schema holds the column positions resolved from a table header.
type Schema struct {
	columns   []string
	latitude  int
	longitude int
	fields    map[Field][]int
}

// Columns returns the normalized column names.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// LatitudeColumn returns the name of the column coordinates are read from.
func (s *Schema) LatitudeColumn() string {
	return s.columns[s.latitude]
}

// LongitudeColumn returns the name of the column coordinates are read from.
func (s *Schema) LongitudeColumn() string {
	return s.columns[s.longitude]
}

// ResolveSchema normalizes the given header and resolves the coordinate and display columns.
// Column names are lower-cased and trimmed. A column whose name equals a known alias wins over
// one that merely contains "lat" (respectively "lon" or "lng").
func ResolveSchema(header []string) (*Schema, error) {
	schema := &Schema{
		columns: make([]string, len(header)),
		fields:  make(map[Field][]int, len(fieldAliases)),
	}
	for i, h := range header {
		schema.columns[i] = NormalizeColumn(h)
	}

	schema.latitude = schema.resolveCoordinate(latitudeAliases, "lat")
	schema.longitude = schema.resolveCoordinate(longitudeAliases, "lon", "lng")
	if schema.latitude < 0 || schema.longitude < 0 {
		return nil, ErrSchemaUnresolved
	}
	if schema.latitude == schema.longitude {
		return nil, fmt.Errorf("%w: column %q matches both", ErrSchemaUnresolved, schema.columns[schema.latitude])
	}

	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			if idx := schema.indexOf(alias); idx >= 0 {
				schema.fields[field] = append(schema.fields[field], idx)
			}
		}
	}
	return schema, nil
}

// NormalizeColumn lower-cases and trims a column name and strips a leading byte order mark.
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Schema) resolveCoordinate(aliases []string, substrings ...string) int {
	for _, alias := range aliases {
		if idx := s.indexOf(alias); idx >= 0 {
			return idx
		}
	}
	for i, col := range s.columns {
		for _, sub := range substrings {
			if strings.Contains(col, sub) {
				return i
			}
		}
	}
	return -1
}

func (s *Schema) indexOf(name string) int {
	for i, col := range s.columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Record is a single place of the catalog. Non-coordinate cells are kept verbatim.
type Record struct {
	Latitude  float64
	Longitude float64

	schema *Schema
	values []string
}

// Coordinate returns the coordinate of the record.
func (r Record) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: r.Latitude, Lon: r.Longitude}
}

// Field returns the first non-empty value of the columns aliased to the given field, or an
// empty string if none of them has a value.
func (r Record) Field(field Field) string {
	if r.schema == nil {
		return ""
	}
	for _, idx := range r.schema.fields[field] {
		if idx < len(r.values) && strings.TrimSpace(r.values[idx]) != "" {
			return r.values[idx]
		}
	}
	return ""
}

// Name returns the place name of the record.
func (r Record) Name() string { return r.Field(FieldLocation) }

// District returns the district of the record.
func (r Record) District() string { return r.Field(FieldDistrict) }

// State returns the state of the record.
func (r Record) State() string { return r.Field(FieldState) }

// Value returns the verbatim cell of the named column. The name is normalized before lookup.
func (r Record) Value(column string) string {
	if r.schema == nil {
		return ""
	}
	idx := r.schema.indexOf(NormalizeColumn(column))
	if idx < 0 || idx >= len(r.values) {
		return ""
	}
	return r.values[idx]
}

// Catalog is the ordered sequence of valid place records. The order of the records is
// authoritative: index i of the catalog is point i of any spatial index built from Points.
type Catalog struct {
	schema  *Schema
	records []Record
	dropped int
}

// Normalize resolves the schema of the table and converts its rows into a Catalog. Rows with a
// missing or non-finite coordinate are dropped. The relative order of the remaining rows is kept.
func Normalize(table *Table) (*Catalog, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: no table", ErrSourceUnreadable)
	}
	schema, err := ResolveSchema(table.Header)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{schema: schema, records: make([]Record, 0, len(table.Rows))}
	for _, row := range table.Rows {
		lat, okLat := cell(row, schema.latitude)
		lon, okLon := cell(row, schema.longitude)
		if !okLat || !okLon {
			cat.dropped++
			continue
		}
		cat.records = append(cat.records, Record{
			Latitude:  lat,
			Longitude: lon,
			schema:    schema,
			values:    append([]string(nil), row...),
		})
	}
	if len(cat.records) == 0 {
		return nil, fmt.Errorf("%w: %d rows dropped", ErrEmptyDataset, cat.dropped)
	}
	return cat, nil
}

// cell returns the coordinate value in column idx of row and whether it is usable.
func cell(row []string, idx int) (float64, bool) {
	if idx >= len(row) {
		return 0, false
	}
	val, err := ParseCoordinate(row[idx])
	if err != nil {
		return 0, false
	}
	return val, true
}

// ParseCoordinate coerces a raw cell into a finite float. Surrounding whitespace is ignored and
// a single decimal comma is accepted in place of a decimal point.
func ParseCoordinate(raw string) (float64, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return 0, errors.New("empty coordinate")
	}
	if !strings.Contains(val, ".") && strings.Count(val, ",") == 1 {
		val = strings.Replace(val, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("coordinate %q is not finite", raw)
	}
	return f, nil
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Record returns the record at index i.
func (c *Catalog) Record(i int) Record {
	return c.records[i]
}

// Dropped returns the number of rows discarded during normalization.
func (c *Catalog) Dropped() int {
	return c.dropped
}

// Schema returns the resolved schema.
func (c *Catalog) Schema() *Schema {
	return c.schema
}

// Points returns the coordinates of all records in catalog order.
func (c *Catalog) Points() []geo.Coordinate {
	points := make([]geo.Coordinate, len(c.records))
	for i, r := range c.records {
		points[i] = r.Coordinate()
	}
	return points
}
