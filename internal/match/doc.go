// package match implements the scoring and classification core of the
// enrichment pipeline: weighted candidate scoring, the four-valued conflict
// taxonomy, and artwork selection.
package match
