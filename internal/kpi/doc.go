// Package kpi maps business units to KPI context documents.
//
// Directly-authored KPI documents exist for only a small fraction of units,
// yet every unit must resolve to exactly one document. The resolver runs an
// ordered chain of strategies, from most to least specific, and guarantees
// total coverage: exact/normalized name match, hierarchical inheritance
// from the nearest ancestor, a curated block-level table, and finally a
// generic default that should never be reached while the block table covers
// every top-level block (validated at startup).
package kpi
