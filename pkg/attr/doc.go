// Package attr implements a columnar attribute table keyed by grid cell.
//
// # Overview
//
// A [Store] holds any number of named float64 columns, each with one slot per
// grid cell in row-major order. A slot holds either a finite value or the
// [Undefined] marker. Analysis runs create one column each (for example
// "Visual Step Depth") and external consumers read it afterwards.
//
// # Writers and Readers
//
// Writes are visible to readers immediately: slots are stored as atomic
// words, so [Store.Value] and [Store.Values] never block on a running
// analysis. Writers, however, are serialized per column. [Store.SetValue] and
// [Store.ResetColumn] take the column's write lock for the duration of one
// call, and [Store.Writer] holds it until [ColumnWriter.Close], giving a
// propagation engine exclusive ownership of its target column for the whole
// run. Writers on different columns never contend.
//
// # Errors
//
//   - [DuplicateColumnError]: CreateColumn with a name already in use.
//   - [InvalidCellError]: a write addressed a cell outside the grid.
//   - [ErrNonFiniteValue]: a write passed ±Inf.
//   - [ErrUnknownColumn]: a handle that this store never issued.
package attr
