package reference

import (
	"compress/gzip"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"
	_ "github.com/mattn/go-sqlite3"
)

// Details holds the static attributes known about an airframe. Empty strings
// mean the source had no value for that column.
type Details struct {
	Registration string
	Type         string
	Operator     string
}

// Lookup is the contract the tracker depends on. A miss returns ok=false.
type Lookup interface {
	Lookup(hexIdent string) (Details, bool)
}

// Store is an in-memory hex ident → Details table loaded from a reference
// database file. Lookups are case-insensitive and never touch the disk; the
// whole table is swapped atomically on (re)load, so an in-flight lookup sees
// either the old or the new table, never a mix.
type Store struct {
	mtx   sync.RWMutex
	byHex map[string]Details
}

func NewStore() *Store {
	return &Store{byHex: map[string]Details{}}
}

// Load reads the reference file at path and replaces the current table with
// its contents. The format is chosen by file extension: .sqb/.db/.sqlite open
// a BaseStation SQLite database, .gz decompresses before CSV parsing, .csv
// and .txt parse as delimited text with a header row. Any failure leaves the
// previous table in place and is reported to the caller, who treats it as a
// degradation, not a fatal condition.
func (s *Store) Load(path string) error {
	var (
		byHex map[string]Details
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqb", ".db", ".sqlite":
		byHex, err = loadSQLite(path)
	case ".gz":
		byHex, err = loadGzipCSV(path)
	case ".csv", ".txt":
		byHex, err = loadCSVFile(path)
	default:
		return fmt.Errorf("unsupported reference database format: %s", path)
	}
	if err != nil {
		return err
	}

	s.mtx.Lock()
	s.byHex = byHex
	s.mtx.Unlock()

	slog.Info("Loaded aircraft reference database", "path", path, "entries", len(byHex))
	return nil
}

// Lookup returns the details for a hex ident, matching case-insensitively.
func (s *Store) Lookup(hexIdent string) (Details, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	d, ok := s.byHex[strings.ToLower(strings.TrimSpace(hexIdent))]
	return d, ok
}

// Len reports the number of loaded entries.
func (s *Store) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.byHex)
}

// loadSQLite reads a BaseStation-style SQLite database. The Aircraft table
// schema is the de facto standard used by BaseStation.sqb distributions.
func loadSQLite(path string) (map[string]Details, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT ModeS, Registration, ICAOTypeCode, RegisteredOwners FROM Aircraft`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft table: %w", err)
	}
	defer rows.Close()

	byHex := map[string]Details{}
	for rows.Next() {
		var modeS string
		var reg, typeCode, owner sql.NullString
		if err := rows.Scan(&modeS, &reg, &typeCode, &owner); err != nil {
			return nil, fmt.Errorf("failed to scan aircraft row: %w", err)
		}
		modeS = strings.ToLower(strings.TrimSpace(modeS))
		if modeS == "" {
			continue
		}
		byHex[modeS] = Details{
			Registration: reg.String,
			Type:         typeCode.String,
			Operator:     owner.String,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aircraft rows: %w", err)
	}
	return byHex, nil
}

func loadGzipCSV(path string) (map[string]Details, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress reference file: %w", err)
	}
	defer gz.Close()

	return loadCSV(gz)
}

func loadCSVFile(path string) (map[string]Details, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer file.Close()

	return loadCSV(file)
}

// csvRow maps the header names used by the aircraft-database CSV exports.
type csvRow struct {
	ICAO24       string `csv:"icao24"`
	Registration string `csv:"registration"`
	TypeCode     string `csv:"typecode"`
	Operator     string `csv:"operator"`
}

func loadCSV(r io.Reader) (map[string]Details, error) {
	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.LazyQuotes = true // tolerate malformed quoting in exported databases

	var rows []*csvRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse reference CSV: %w", err)
	}

	byHex := map[string]Details{}
	for _, row := range rows {
		hex := strings.ToLower(strings.TrimSpace(strings.Trim(row.ICAO24, "'\"")))
		if hex == "" {
			continue
		}
		byHex[hex] = Details{
			Registration: strings.TrimSpace(row.Registration),
			Type:         strings.TrimSpace(row.TypeCode),
			Operator:     strings.TrimSpace(row.Operator),
		}
	}
	return byHex, nil
}
