// Package diagnostics implements the report run lifecycle: load the input,
// pull the flow from the configured metric source, run the analyses under a
// per-date lock, then persist, record and announce the result.
//
// Every collaborator is an interface defined here; the adapters live in
// storage/, repository/, notify/, metrics/ and the metric source packages.
package diagnostics
