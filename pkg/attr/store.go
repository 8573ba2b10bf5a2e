package attr

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
)

// Undefined marks a cell that has no value in a column. Test with IsUndefined;
// NaN never compares equal to itself.
var Undefined = math.NaN()

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v float64) bool { return math.IsNaN(v) }

var undefinedBits = math.Float64bits(Undefined)

// ColumnHandle identifies a column within one Store.
type ColumnHandle int

// Store is a table of named float64 columns with one slot per grid cell.
// It is safe for concurrent use.
type Store struct {
	grid *grid.Grid

	mu      sync.RWMutex
	byName  map[string]ColumnHandle
	columns []*column
}

type column struct {
	name   string
	values []atomic.Uint64

	// write serializes writers; readers never take it.
	write sync.Mutex
}

// NewStore returns an empty store sized for g.
func NewStore(g *grid.Grid) *Store {
	return &Store{grid: g, byName: make(map[string]ColumnHandle)}
}

// Grid returns the grid the store is keyed by.
func (s *Store) Grid() *grid.Grid { return s.grid }

// CreateColumn adds a new column with every cell Undefined.
// Returns *DuplicateColumnError if the name is already in use.
func (s *Store) CreateColumn(name string) (ColumnHandle, error) {
	if err := vgaerrors.ValidateColumnName(name); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; ok {
		return 0, &DuplicateColumnError{Name: name}
	}
	return s.addLocked(name), nil
}

// GetOrCreateColumn returns the column named name, creating it if needed.
// The boolean reports whether the column was created by this call.
func (s *Store) GetOrCreateColumn(name string) (ColumnHandle, bool, error) {
	if err := vgaerrors.ValidateColumnName(name); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byName[name]; ok {
		return h, false, nil
	}
	return s.addLocked(name), true, nil
}

func (s *Store) addLocked(name string) ColumnHandle {
	col := &column{name: name, values: make([]atomic.Uint64, s.grid.Len())}
	for i := range col.values {
		col.values[i].Store(undefinedBits)
	}
	h := ColumnHandle(len(s.columns))
	s.columns = append(s.columns, col)
	s.byName[name] = h
	return h
}

// Column looks up a column by name.
func (s *Store) Column(name string) (ColumnHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byName[name]
	return h, ok
}

// Columns returns the column names in creation order.
func (s *Store) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.name
	}
	return names
}

// Name returns the name of column h.
func (s *Store) Name(h ColumnHandle) (string, error) {
	col, err := s.column(h)
	if err != nil {
		return "", err
	}
	return col.name, nil
}

func (s *Store) column(h ColumnHandle) (*column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h < 0 || int(h) >= len(s.columns) {
		return nil, fmt.Errorf("%w: handle %d", ErrUnknownColumn, h)
	}
	return s.columns[h], nil
}

// SetValue writes v to one cell of column h. v must be finite or Undefined.
func (s *Store) SetValue(h ColumnHandle, c grid.Cell, v float64) error {
	col, err := s.column(h)
	if err != nil {
		return err
	}
	i, err := s.slot(c, v)
	if err != nil {
		return err
	}
	col.write.Lock()
	col.values[i].Store(math.Float64bits(v))
	col.write.Unlock()
	return nil
}

func (s *Store) slot(c grid.Cell, v float64) (int, error) {
	if !s.grid.Valid(c) {
		return 0, &InvalidCellError{Cell: c}
	}
	if math.IsInf(v, 0) {
		return 0, ErrNonFiniteValue
	}
	return s.grid.Index(c), nil
}

// ResetColumn sets every cell of column h to Undefined.
func (s *Store) ResetColumn(h ColumnHandle) error {
	col, err := s.column(h)
	if err != nil {
		return err
	}
	col.write.Lock()
	defer col.write.Unlock()
	col.reset()
	return nil
}

func (c *column) reset() {
	for i := range c.values {
		c.values[i].Store(undefinedBits)
	}
}

// Value reads one cell of column h. Cells outside the grid read as Undefined.
func (s *Store) Value(h ColumnHandle, c grid.Cell) (float64, error) {
	col, err := s.column(h)
	if err != nil {
		return Undefined, err
	}
	if !s.grid.Valid(c) {
		return Undefined, &InvalidCellError{Cell: c}
	}
	return math.Float64frombits(col.values[s.grid.Index(c)].Load()), nil
}

// Values returns a snapshot of column h in row-major order.
// The snapshot is not atomic with respect to a concurrent writer.
func (s *Store) Values(h ColumnHandle) ([]float64, error) {
	col, err := s.column(h)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col.values))
	for i := range col.values {
		out[i] = math.Float64frombits(col.values[i].Load())
	}
	return out, nil
}

// Writer acquires exclusive write access to column h. It blocks while another
// writer holds the column. The caller must call Close when done.
func (s *Store) Writer(h ColumnHandle) (*ColumnWriter, error) {
	col, err := s.column(h)
	if err != nil {
		return nil, err
	}
	col.write.Lock()
	return &ColumnWriter{store: s, col: col}, nil
}

// ColumnWriter holds a column's write lock until Close.
// A ColumnWriter is not safe for concurrent use.
type ColumnWriter struct {
	store  *Store
	col    *column
	closed bool
}

// Set writes v to cell c. v must be finite or Undefined.
func (w *ColumnWriter) Set(c grid.Cell, v float64) error {
	if w.closed {
		return ErrWriterClosed
	}
	i, err := w.store.slot(c, v)
	if err != nil {
		return err
	}
	w.col.values[i].Store(math.Float64bits(v))
	return nil
}

// Reset sets every cell to Undefined.
func (w *ColumnWriter) Reset() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.col.reset()
	return nil
}

// Close releases the write lock. Calling Close more than once is a no-op.
func (w *ColumnWriter) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.col.write.Unlock()
}
