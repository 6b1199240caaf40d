// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/wneessen/geonear/internal/http"
)

// Source provides the raw table a Catalog is normalized from.
type Source interface {
	Name() string
	Table(ctx context.Context) (*Table, error)
}

// SourceOptions configures the source returned by NewSource.
type SourceOptions struct {
	// Sheet selects the worksheet of XLSX input. Empty selects the first sheet.
	Sheet string
	// Table is the database table read by PostgreSQL sources.
	Table string
	// Client is used for http(s) sources.
	Client *http.Client
	// Timeout limits the time spent reading remote sources. Zero disables the limit.
	Timeout time.Duration
}

// NewSource returns the Source for the given location. Locations starting with postgres:// or
// postgresql:// are read from a database table, http:// and https:// locations are downloaded,
// everything else is treated as a local file path.
func NewSource(location string, opts SourceOptions) (Source, error) {
	lower := strings.ToLower(location)
	switch {
	case location == "":
		return nil, fmt.Errorf("%w: no source configured", ErrSourceUnreadable)
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return &SQLSource{DSN: location, TableName: opts.Table, Timeout: opts.Timeout}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if opts.Client == nil {
			return nil, fmt.Errorf("%w: no HTTP client for %s", ErrSourceUnreadable, location)
		}
		return &URLSource{URL: location, Sheet: opts.Sheet, Client: opts.Client, Timeout: opts.Timeout}, nil
	default:
		return &FileSource{Path: location, Sheet: opts.Sheet}, nil
	}
}

// Load reads the table of the source and normalizes it into a Catalog.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	table, err := src.Table(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(table)
}

// FileSource reads a CSV, TSV or XLSX file from the local file system.
type FileSource struct {
	Path  string
	Sheet string
}

// Name returns the path of the file.
func (s *FileSource) Name() string {
	return s.Path
}

// Table opens and parses the file.
func (s *FileSource) Table(context.Context) (*Table, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer func() { _ = file.Close() }()
	return Parse(file, FormatFromPath(s.Path), s.Sheet)
}

// URLSource downloads a CSV, TSV or XLSX file. The format is taken from the URL path extension.
type URLSource struct {
	URL     string
	Sheet   string
	Client  *http.Client
	Timeout time.Duration
}

// Name returns the URL of the file.
func (s *URLSource) Name() string {
	return s.URL
}

// Table downloads and parses the file.
func (s *URLSource) Table(ctx context.Context) (*Table, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = http.DefaultTimeout
	}
	buf := bytes.NewBuffer(nil)
	if _, err := s.Client.DownloadWithTimeout(ctx, s.URL, buf, nil, timeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	return Parse(buf, FormatFromPath(s.URL), s.Sheet)
}

// SQLSource reads all rows of a PostgreSQL table. Column names form the header, NULL values
// become empty cells.
type SQLSource struct {
	DSN       string
	TableName string
	Timeout   time.Duration

	// DB is used instead of opening DSN if set.
	DB *sql.DB
}

// Name returns the table name. The DSN is not included since it may carry credentials.
func (s *SQLSource) Name() string {
	return "postgres:" + s.TableName
}

// Table queries the table.
func (s *SQLSource) Table(ctx context.Context) (*Table, error) {
	if s.TableName == "" {
		return nil, fmt.Errorf("%w: no table name configured", ErrSourceUnreadable)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	db := s.DB
	if db == nil {
		var err error
		if db, err = sql.Open("postgres", s.DSN); err != nil {
			return nil, fmt.Errorf("%w: failed to open database: %w", ErrSourceUnreadable, err)
		}
		defer func() { _ = db.Close() }()
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+QuoteTable(s.TableName))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query table: %w", ErrSourceUnreadable, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read columns: %w", ErrSourceUnreadable, err)
	}
	table := &Table{Header: columns}
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err = rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %w", ErrSourceUnreadable, err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = v.String
		}
		table.Rows = append(table.Rows, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %w", ErrSourceUnreadable, err)
	}
	return table, nil
}

// QuoteTable quotes a possibly schema-qualified table name for use in a query.
func QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}
