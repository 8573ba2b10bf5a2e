package persist

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// JSONFile writes each column as an indented JSON document at Path.
// Each write replaces the file.
type JSONFile struct {
	Path string
}

// NewJSONFile returns a sink writing to path.
func NewJSONFile(path string) *JSONFile { return &JSONFile{Path: path} }

// WriteColumn encodes col to the file.
func (s *JSONFile) WriteColumn(ctx context.Context, col Column) error {
	if err := col.validate(); err != nil {
		return err
	}
	return writeFile(s.Path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(col)
	})
}

// ReadJSON decodes a column written by JSONFile.
func ReadJSON(r io.Reader) (Column, error) {
	var col Column
	if err := json.NewDecoder(r).Decode(&col); err != nil {
		return Column{}, fmt.Errorf("decode: %w", err)
	}
	return col, col.validate()
}

// CSVFile writes one row per cell: col, row, x, y, value. Undefined values
// are written as empty fields.
type CSVFile struct {
	Path string
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// NewCSVFile returns a comma-delimited sink writing to path.
func NewCSVFile(path string) *CSVFile { return &CSVFile{Path: path} }

// WriteColumn writes col with a header row naming the value column.
func (s *CSVFile) WriteColumn(ctx context.Context, col Column) error {
	if err := col.validate(); err != nil {
		return err
	}
	g, err := col.Grid()
	if err != nil {
		return err
	}
	return writeFile(s.Path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if s.Comma != 0 {
			cw.Comma = s.Comma
		}
		if err := cw.Write([]string{"col", "row", "x", "y", col.Name}); err != nil {
			return err
		}
		for i, v := range col.Values {
			c := col.Cell(i)
			p := g.ToPhysical(c)
			value := ""
			if !math.IsNaN(v) {
				value = strconv.FormatFloat(v, 'g', -1, 64)
			}
			rec := []string{
				strconv.Itoa(c.Col),
				strconv.Itoa(c.Row),
				strconv.FormatFloat(p.X, 'g', -1, 64),
				strconv.FormatFloat(p.Y, 'g', -1, 64),
				value,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// writeFile writes through fn and closes the file, returning the first error.
// A path of "-" writes to stdout.
func writeFile(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

var (
	_ Sink = (*JSONFile)(nil)
	_ Sink = (*CSVFile)(nil)
)
