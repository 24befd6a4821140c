// Package core turns an uploaded spreadsheet into draft stock moves for an
// existing picking.
//
// The package holds no HTTP handlers or SQL. Products, units and pickings are
// reached through the [ProductLookup], [UnitLookup] and [Store] interfaces, so
// the same code runs behind the web handlers, in tests with in-memory fakes,
// or from a CLI.
//
// # Import Flow
//
//  1. [ReadSheet] decodes the upload (XLSX through excelize, CSV through
//     encoding/csv) into a header and data rows.
//  2. [ValidateHeaders] checks the three fixed columns: tuotekoodi, maara,
//     yksikko. Missing columns fail before any lookup happens.
//  3. [Importer.Import] walks the rows in file order, resolving the product by
//     its default code and the unit by its name, and builds one
//     [MovementLine] per row.
//  4. [Service.ImportFile] persists the whole slice in one transaction.
//
// Any failing row aborts the import: callers get either every line or none.
//
// # Error Handling
//
// Domain failures are typed ([UnresolvedProductError], [MissingColumnError],
// ...) and carry the 0-based data row and 1-based sheet line where relevant.
// [MapError] turns any error into a [UserMessage] with a support code:
//
//   - IMP001-IMP009: Import errors (columns, products, units, quantities, pickings)
//   - FILE001-FILE005: File errors (size, format, empty)
//   - DB001-DB007: Database errors (constraints, connections)
//   - UPL001-UPL005: Request errors (busy, cancelled, timeout)
package core
