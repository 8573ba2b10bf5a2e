package selection

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
)

// DefaultFileDelimiter separates fields in points files.
const DefaultFileDelimiter = '\t'

// InlineDelimiter separates the coordinates of a command-line point.
const InlineDelimiter = ','

// ParseError describes a malformed row in a points list.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("selection: line %d: %s", e.Line, e.Msg)
	}
	return "selection: " + e.Msg
}

// Code reports the structured error code.
func (e *ParseError) Code() vgaerrors.Code { return vgaerrors.ErrCodeInvalidFormat }

// ParsePoints reads delimited points from r. The first row is a header that
// must name an "x" and a "y" column (any order, any case); other columns are
// ignored. Blank lines are skipped.
func ParsePoints(r io.Reader, delim rune) ([]grid.Point, error) {
	if err := vgaerrors.ValidateDelimiter(delim); err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = delim != ' ' && delim != '\t'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Msg: "missing header row"}
	}
	if err != nil {
		return nil, readError(err)
	}
	xi, yi := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "x":
			xi = i
		case "y":
			yi = i
		}
	}
	if xi < 0 || yi < 0 {
		return nil, &ParseError{Line: 1, Msg: fmt.Sprintf("header must name x and y columns, got %q", header)}
	}

	var pts []grid.Point
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) <= max(xi, yi) {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("expected at least %d fields, got %d", max(xi, yi)+1, len(rec))}
		}
		x, err := parseCoord(rec[xi])
		if err != nil {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("x: %v", err)}
		}
		y, err := parseCoord(rec[yi])
		if err != nil {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("y: %v", err)}
		}
		pts = append(pts, grid.Point{X: x, Y: y})
	}
	return pts, nil
}

func readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Msg: pe.Err.Error()}
	}
	return vgaerrors.Wrap(vgaerrors.ErrCodeInvalidInput, err, "read points")
}

func parseCoord(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("coordinate %q is not finite", s)
	}
	return v, nil
}

// ParseInline parses "x,y" values given on the command line.
func ParseInline(values []string) ([]grid.Point, error) {
	for _, v := range values {
		if !validInline(v) {
			return nil, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument,
				"Invalid step depth point provided (%s). Should only contain digits dots and commas", v)
		}
	}
	var b strings.Builder
	b.WriteString("x,y")
	for _, v := range values {
		b.WriteByte('\n')
		b.WriteString(v)
	}
	return ParsePoints(strings.NewReader(b.String()), InlineDelimiter)
}

// validInline accepts digits, dots and commas, plus a minus sign at the start
// of a coordinate.
func validInline(v string) bool {
	if v == "" {
		return false
	}
	for i, r := range v {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
		case r == '-' && (i == 0 || v[i-1] == ','):
		default:
			return false
		}
	}
	return true
}

// LoadFile reads points from the file at path. A missing file fails with
// FILE_NOT_FOUND; any other open failure with INVALID_INPUT carrying the
// I/O error text.
func LoadFile(path string, delim rune) ([]grid.Point, error) {
	if err := vgaerrors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, vgaerrors.Wrap(vgaerrors.ErrCodeFileNotFound, err, "Failed to load file %s", path)
	}
	if err != nil {
		return nil, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidInput, err, "Failed to open file %s", path)
	}
	defer f.Close()
	pts, err := ParsePoints(f, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}
