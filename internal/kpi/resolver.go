package kpi

import (
	"fmt"
	"log/slog"

	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/org"
)

// Tier is one precedence level of the cascading resolution algorithm.
// Lower tiers are more specific.
type Tier int

// Resolution tiers, most specific first.
const (
	TierExactName Tier = iota + 1
	TierAncestor
	TierBlock
	TierDefault
)

// Confidence qualifies how specific a resolution is.
type Confidence string

// Confidence levels per tier.
const (
	ConfidenceHigh       Confidence = "high"
	ConfidenceMediumHigh Confidence = "medium-high"
	ConfidenceMedium     Confidence = "medium"
	ConfidenceLow        Confidence = "low"
)

// DefaultDocumentID is the generic fallback document. Reachable only when
// the block table has drifted from the hierarchy, which startup validation
// is meant to rule out.
const DefaultDocumentID = "kpi-generic"

// Resolution records which document a unit resolved to and how.
type Resolution struct {
	UnitPath   string     `json:"unit_path"`
	DocumentID string     `json:"document_id"`
	Tier       Tier       `json:"tier"`
	Method     string     `json:"method"`
	Confidence Confidence `json:"confidence"`
}

// strategy is one attempt at resolving a unit path to a document.
// Strategies are tried in order; the first hit wins.
type strategy interface {
	resolve(segments []string) (*Resolution, bool)
}

// Resolver deterministically maps any unit path to exactly one KPI
// document. It is a pure function of the path and the static tables; no
// I/O happens per call.
type Resolver struct {
	chain  []strategy
	logger *slog.Logger
}

// NewResolver builds the strategy chain and validates that the block table
// covers every top-level block present in the index. An incomplete table
// fails startup with domain.ErrBlockTableIncomplete rather than silently
// defaulting at resolve time.
func NewResolver(index *org.Index, catalog *Catalog, blocks *BlockTable, logger *slog.Logger) (*Resolver, error) {
	if err := validateBlockCoverage(index, blocks); err != nil {
		return nil, err
	}

	log := logger.With("component", "kpi_resolver")
	return &Resolver{
		chain: []strategy{
			&exactNameStrategy{catalog: catalog},
			&ancestorStrategy{catalog: catalog},
			&blockStrategy{blocks: blocks},
			&defaultStrategy{logger: log},
		},
		logger: log,
	}, nil
}

// Resolve returns exactly one document for the given unit path. An unknown
// path is not an error: tiers 1 and 2 simply find no match and the block
// fallback takes over, so coverage stays total.
func (r *Resolver) Resolve(path string) (*Resolution, error) {
	segments := domain.SplitPath(path)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: empty unit path", domain.ErrUnitNotFound)
	}

	for _, s := range r.chain {
		if res, ok := s.resolve(segments); ok {
			res.UnitPath = domain.JoinPath(segments)
			r.logger.Debug("context resolved",
				"unit_path", res.UnitPath,
				"document_id", res.DocumentID,
				"tier", int(res.Tier),
				"method", res.Method)
			return res, nil
		}
	}

	// Unreachable: defaultStrategy always resolves.
	return nil, fmt.Errorf("resolver chain exhausted for path %q", path)
}

// TierStats is the tier distribution over a set of resolutions.
type TierStats struct {
	Total  int          `json:"total"`
	ByTier map[Tier]int `json:"by_tier"`
}

// Stats resolves every unit in the index and reports the tier
// distribution. Used by validation tooling to spot drift: any TIER 4 count
// above zero means the block table no longer covers the hierarchy.
func (r *Resolver) Stats(index *org.Index) (*TierStats, error) {
	units, err := index.Units()
	if err != nil {
		return nil, err
	}

	stats := &TierStats{ByTier: make(map[Tier]int)}
	for _, unit := range units {
		res, err := r.Resolve(unit.PathKey())
		if err != nil {
			return nil, err
		}
		stats.ByTier[res.Tier]++
		stats.Total++
	}
	return stats, nil
}

// validateBlockCoverage checks that every top-level block in the hierarchy
// has a block table entry.
func validateBlockCoverage(index *org.Index, blocks *BlockTable) error {
	units, err := index.Units()
	if err != nil {
		return err
	}

	for _, unit := range units {
		// Level-1 units define blocks; the root gets its own entry so that
		// resolving the organization itself never falls through to TIER 4.
		if unit.Level > 1 {
			continue
		}
		if _, ok := blocks.Lookup(unit.Block()); !ok {
			return fmt.Errorf("%w: top-level block %q has no entry",
				domain.ErrBlockTableIncomplete, unit.Block())
		}
	}
	return nil
}

// exactNameStrategy is TIER 1: the unit's own display name has a
// directly-authored document, matched exactly after normalization or, as a
// secondary attempt, by deterministic partial match.
type exactNameStrategy struct {
	catalog *Catalog
}

func (s *exactNameStrategy) resolve(segments []string) (*Resolution, bool) {
	name := segments[len(segments)-1]

	if docID, ok := s.catalog.Lookup(name); ok {
		return &Resolution{
			DocumentID: docID,
			Tier:       TierExactName,
			Method:     "exact_name",
			Confidence: ConfidenceHigh,
		}, true
	}

	if docID, matched, ok := s.catalog.LookupPartial(name); ok {
		return &Resolution{
			DocumentID: docID,
			Tier:       TierExactName,
			Method:     "partial_name:" + matched,
			Confidence: ConfidenceHigh,
		}, true
	}

	return nil, false
}

// ancestorStrategy is TIER 2: walk the path upward one segment at a time
// and take the first ancestor with a direct document, so a subunit inherits
// its parent's specific document before anything generic.
type ancestorStrategy struct {
	catalog *Catalog
}

func (s *ancestorStrategy) resolve(segments []string) (*Resolution, bool) {
	for i := len(segments) - 2; i >= 0; i-- {
		if docID, ok := s.catalog.Lookup(segments[i]); ok {
			return &Resolution{
				DocumentID: docID,
				Tier:       TierAncestor,
				Method:     "ancestor:" + segments[i],
				Confidence: ConfidenceMediumHigh,
			}, true
		}
		if docID, matched, ok := s.catalog.LookupPartial(segments[i]); ok {
			return &Resolution{
				DocumentID: docID,
				Tier:       TierAncestor,
				Method:     "ancestor_partial:" + matched,
				Confidence: ConfidenceMediumHigh,
			}, true
		}
	}
	return nil, false
}

// blockStrategy is TIER 3: map the unit's top-level block through the
// curated block table.
type blockStrategy struct {
	blocks *BlockTable
}

func (s *blockStrategy) resolve(segments []string) (*Resolution, bool) {
	block := domain.BlockSegment(segments)

	docID, ok := s.blocks.Lookup(block)
	if !ok {
		return nil, false
	}
	return &Resolution{
		DocumentID: docID,
		Tier:       TierBlock,
		Method:     "block_table:" + block,
		Confidence: ConfidenceMedium,
	}, true
}

// defaultStrategy is TIER 4: the hardcoded generic document. Startup
// validation makes this unreachable for indexed units, so a hit is logged
// as drift between the block table and the hierarchy.
type defaultStrategy struct {
	logger *slog.Logger
}

func (s *defaultStrategy) resolve(segments []string) (*Resolution, bool) {
	s.logger.Error("generic fallback document used; block table has drifted from the hierarchy",
		"unit_path", domain.JoinPath(segments))
	return &Resolution{
		DocumentID: DefaultDocumentID,
		Tier:       TierDefault,
		Method:     "default",
		Confidence: ConfidenceLow,
	}, true
}
