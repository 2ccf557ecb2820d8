// Package model defines the persisted form definition: Form, FormField,
// ValidationRule and DerivedFieldConfig, plus the closed enumerations for field
// types, rule types and derived calculations. JSON tags mirror the saved-form
// record so definitions round-trip through storage and file import/export
// unchanged.
//
// Values of these types follow snapshot semantics at the API boundary. Builder
// helpers (AddField, DeleteField, ReorderFields, MoveField, Normalize) return a
// new Form and keep Order a dense 0..n-1 ranking. Check and CheckStrict perform
// the structural validation run once at ingestion boundaries; Graph exposes the
// derived-field dependencies used for cycle detection and transitive
// propagation.
package model
