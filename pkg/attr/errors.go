package attr

import (
	"fmt"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
)

var (
	// ErrUnknownColumn is returned for a handle that the store never issued.
	ErrUnknownColumn = vgaerrors.New(vgaerrors.ErrCodeColumnNotFound, "attr: unknown column")

	// ErrNonFiniteValue is returned when a write passes ±Inf. Use Undefined
	// to mark a cell as having no value.
	ErrNonFiniteValue = vgaerrors.New(vgaerrors.ErrCodeInvalidInput, "attr: value must be finite or Undefined")

	// ErrWriterClosed is returned by a ColumnWriter after Close.
	ErrWriterClosed = vgaerrors.New(vgaerrors.ErrCodeInternal, "attr: column writer closed")
)

// DuplicateColumnError is returned by CreateColumn when the name is taken.
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("attr: column %q already exists", e.Name)
}

// Code reports the structured error code.
func (e *DuplicateColumnError) Code() vgaerrors.Code { return vgaerrors.ErrCodeDuplicateColumn }

// InvalidCellError is returned when a write addresses a cell outside the grid.
type InvalidCellError struct {
	Cell grid.Cell
}

func (e *InvalidCellError) Error() string {
	return fmt.Sprintf("attr: cell %s is not in the grid", e.Cell)
}

// Code reports the structured error code.
func (e *InvalidCellError) Code() vgaerrors.Code { return vgaerrors.ErrCodeInvalidCell }
