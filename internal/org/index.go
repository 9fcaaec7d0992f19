package org

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// Index is the authoritative, path-keyed view of the organizational
// hierarchy. Build it once at startup; all lookup methods fail with
// domain.ErrIndexNotReady until the first build completes.
type Index struct {
	snap   atomic.Pointer[snapshot]
	logger *slog.Logger
}

// snapshot holds one fully built, immutable generation of the index.
// Readers always see either the previous generation or this one, never a
// partially populated state.
type snapshot struct {
	units     map[string]*domain.BusinessUnit
	positions map[string]*domain.Position
	byName    map[string][]string
	paths     []string
}

// NewIndex creates an empty, unbuilt index.
func NewIndex(logger *slog.Logger) *Index {
	return &Index{
		logger: logger.With("component", "org_index"),
	}
}

// Build walks the hierarchy tree depth-first and publishes a fresh
// snapshot. It is idempotent: building twice from identical input yields
// identical contents. Returns domain.ErrMalformedHierarchy for nameless
// nodes, cycles, or colliding paths.
func (ix *Index) Build(root *Node) error {
	if root == nil {
		return fmt.Errorf("%w: hierarchy root is nil", domain.ErrMalformedHierarchy)
	}

	next := &snapshot{
		units:     make(map[string]*domain.BusinessUnit),
		positions: make(map[string]*domain.Position),
		byName:    make(map[string][]string),
	}

	onStack := make(map[*Node]bool)
	if err := indexNode(root, nil, onStack, next); err != nil {
		return err
	}

	next.paths = make([]string, 0, len(next.units))
	for path := range next.units {
		next.paths = append(next.paths, path)
	}
	sort.Strings(next.paths)
	for name := range next.byName {
		sort.Strings(next.byName[name])
	}

	ix.snap.Store(next)
	ix.logger.Info("organization index built",
		"units", len(next.units),
		"positions", len(next.positions))
	return nil
}

// indexNode inserts one node and recurses into its children, accumulating
// the path of segment names. onStack tracks the current DFS stack so a node
// reappearing as its own ancestor (possible through YAML anchors) is
// reported instead of recursing forever.
func indexNode(node *Node, parentPath []string, onStack map[*Node]bool, snap *snapshot) error {
	if node.Name == "" {
		return fmt.Errorf("%w: node under %q has no name",
			domain.ErrMalformedHierarchy, domain.JoinPath(parentPath))
	}
	// A slash in a unit name would make its path ambiguous to SplitPath.
	if strings.Contains(node.Name, "/") {
		return fmt.Errorf("%w: unit name %q contains the path delimiter",
			domain.ErrMalformedHierarchy, node.Name)
	}
	if onStack[node] {
		return fmt.Errorf("%w: cycle detected at %q under %q",
			domain.ErrMalformedHierarchy, node.Name, domain.JoinPath(parentPath))
	}
	onStack[node] = true
	defer delete(onStack, node)

	path := make([]string, 0, len(parentPath)+1)
	path = append(path, parentPath...)
	path = append(path, node.Name)
	key := domain.JoinPath(path)

	if _, exists := snap.units[key]; exists {
		return fmt.Errorf("%w: duplicate unit path %q", domain.ErrMalformedHierarchy, key)
	}

	unit := &domain.BusinessUnit{
		Path:  path,
		Name:  node.Name,
		Level: len(path) - 1,
	}
	for _, p := range node.Positions {
		pos := &domain.Position{
			UnitPath:  key,
			Name:      p.Name,
			Seniority: p.Seniority,
			Category:  domain.PositionCategory(p.Category),
		}
		if err := pos.Validate(); err != nil {
			return fmt.Errorf("%w: position %q in unit %q: %v",
				domain.ErrMalformedHierarchy, p.Name, key, err)
		}
		snap.positions[pos.Key()] = pos
		unit.Positions = append(unit.Positions, pos.Name)
	}

	snap.units[key] = unit
	snap.byName[node.Name] = append(snap.byName[node.Name], key)

	for _, child := range node.Units {
		if err := indexNode(child, path, onStack, snap); err != nil {
			return err
		}
	}
	return nil
}

// load returns the current snapshot or ErrIndexNotReady before first build.
func (ix *Index) load() (*snapshot, error) {
	snap := ix.snap.Load()
	if snap == nil {
		return nil, domain.ErrIndexNotReady
	}
	return snap, nil
}

// Ready reports whether a build has completed.
func (ix *Index) Ready() bool {
	return ix.snap.Load() != nil
}

// Len returns the number of indexed business units.
func (ix *Index) Len() int {
	snap := ix.snap.Load()
	if snap == nil {
		return 0
	}
	return len(snap.units)
}

// FindByPath looks up a unit by its canonical full path string. This is the
// primary, unambiguous resolution method; callers that already hold a path
// must prefer it over name-based search.
func (ix *Index) FindByPath(path string) (*domain.BusinessUnit, error) {
	snap, err := ix.load()
	if err != nil {
		return nil, err
	}
	unit, ok := snap.units[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnitNotFound, path)
	}
	return unit, nil
}

// FindByName returns every unit whose display name matches exactly, ordered
// by path for determinism. Intended for user-facing search only; context
// resolution must go through FindByPath so a duplicate leaf name can never
// silently pick the wrong sibling.
func (ix *Index) FindByName(name string) ([]*domain.BusinessUnit, error) {
	snap, err := ix.load()
	if err != nil {
		return nil, err
	}
	paths := snap.byName[name]
	units := make([]*domain.BusinessUnit, 0, len(paths))
	for _, p := range paths {
		units = append(units, snap.units[p])
	}
	return units, nil
}

// FindPosition looks up a position by its owning unit path and name.
func (ix *Index) FindPosition(unitPath, name string) (*domain.Position, error) {
	snap, err := ix.load()
	if err != nil {
		return nil, err
	}
	if _, ok := snap.units[unitPath]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnitNotFound, unitPath)
	}
	pos, ok := snap.positions[domain.PositionKey(unitPath, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q in unit %q", domain.ErrPositionNotFound, name, unitPath)
	}
	return pos, nil
}

// Units returns all indexed units ordered by path. Used by validation
// tooling (resolver statistics); not a hot path.
func (ix *Index) Units() ([]*domain.BusinessUnit, error) {
	snap, err := ix.load()
	if err != nil {
		return nil, err
	}
	units := make([]*domain.BusinessUnit, 0, len(snap.paths))
	for _, p := range snap.paths {
		units = append(units, snap.units[p])
	}
	return units, nil
}

// Search performs a case-insensitive match of the query against display
// names and full paths. Substring matches rank ahead of fuzzy matches;
// ties break by shorter path first, then lexicographic path order, so
// results are reproducible.
func (ix *Index) Search(query string) ([]*domain.BusinessUnit, error) {
	snap, err := ix.load()
	if err != nil {
		return nil, err
	}

	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	lower := strings.ToLower(q)

	type match struct {
		unit      *domain.BusinessUnit
		substring bool
	}
	var matches []match
	for _, path := range snap.paths {
		unit := snap.units[path]
		switch {
		case strings.Contains(strings.ToLower(unit.Name), lower),
			strings.Contains(strings.ToLower(path), lower):
			matches = append(matches, match{unit: unit, substring: true})
		case fuzzy.MatchNormalizedFold(q, unit.Name):
			matches = append(matches, match{unit: unit})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.substring != b.substring {
			return a.substring
		}
		if len(a.unit.Path) != len(b.unit.Path) {
			return len(a.unit.Path) < len(b.unit.Path)
		}
		return a.unit.PathKey() < b.unit.PathKey()
	})

	units := make([]*domain.BusinessUnit, len(matches))
	for i, m := range matches {
		units[i] = m.unit
	}
	return units, nil
}
