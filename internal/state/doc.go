// package state persists the two run-spanning artifacts of the pipeline:
// the resume set of processed track ids (SQLite, written per track) and the
// dry-run report cache (flat JSON, consumed then deleted on apply).
package state
