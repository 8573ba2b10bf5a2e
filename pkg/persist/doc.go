// Package persist hands computed columns to storage.
//
// A [Column] is a self-describing snapshot of one attribute column: its
// name, the grid geometry and one value per cell in row-major order, with
// undefined cells encoded as JSON null. A [Sink] stores columns by name;
// writing a column whose name already exists replaces it.
//
// File sinks live in this package ([JSONFile], [CSVFile]). Database sinks
// live in subpackages:
//
//   - sqlite: embedded migrations, one row per cell.
//   - postgres: one row per column with a float8[] of values.
//   - mongo: one document per column, upserted by name.
package persist
