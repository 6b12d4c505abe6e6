// Package core provides the business logic for HR data imports.
//
// This package holds all domain logic independent of any transport. The web
// handlers and the hrimport CLI both drive the same [Service].
//
// # Architecture
//
//   - Import kinds: registered via the registry, each kind has a header
//     schema, field specs, a builder and a persist step.
//   - Service: the entry point for imports, dry runs and import history.
//   - Store: the transactional persistence boundary, implemented by the
//     postgres and sqlite packages.
//
// # Kind Registry
//
// Kinds are registered at init time using [Register]:
//
//	core.Register(core.ImportDefinition{
//	    Info: core.ImportInfo{Key: "departments", Label: "Departments"},
//	    Schema: tabular.CountSchema(3),
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "code", Required: true, Normalizer: NormalizeCode},
//	        {Name: "name", Required: true},
//	        {Name: "parent_code"},
//	    },
//	    Build:   buildDepartment,
//	    Persist: persistDepartments,
//	})
//
// A zero Schema is derived from the field spec names.
//
// # Import Flow
//
//  1. The input is size checked, decoded to UTF-8 and its line endings
//     normalized ([NormalizeInput]).
//  2. The tabular engine validates the header and maps rows to records.
//  3. Each record is cleaned and validated against the field specs, then
//     built into a domain value ([BuildAll]).
//  4. The kind's persist step writes everything in one transaction together
//     with an [ImportLog] entry.
//
// Archive imports run the employees file and the permissions file through the
// same transaction. Permission rows are resolved against the IDs generated for
// the employees, and nothing is committed unless both files succeed.
//
// Check variants run the same flow against an in-memory transaction and never
// touch the store.
//
// # Import History
//
// Every import, committed or failed, leaves an [ImportLog] entry. Long-lived
// services prune old entries with [Service.StartRetentionScheduler].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError]. Each
// category has a code prefix for support reference:
//
//   - IMP: structural failures from the tabular engine
//   - VAL: cell validation failures, always tied to a row
//   - DB: database errors
//   - FILE, UPL, KND, RATE: input, concurrency and request errors
package core
