// package models defines the data model for the crate enrichment pipeline:
// track records, lookup candidates, field dispositions, enrichment results,
// review items, and the persisted report documents.
package models
