package kpi

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the table of units that have a directly-authored KPI document,
// keyed by normalized unit display name. Loaded once at startup, read-only
// afterwards.
type Catalog struct {
	byName map[string]string
	names  []string
}

// catalogDocument is the YAML shape of one catalog entry.
type catalogDocument struct {
	ID   string `yaml:"id"`
	Unit string `yaml:"unit"`
}

// catalogFile is the top-level shape of the KPI catalog file.
type catalogFile struct {
	Documents []catalogDocument `yaml:"documents"`
}

// LoadCatalog reads the KPI catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read KPI catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a KPI catalog from raw YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse KPI catalog: %w", err)
	}

	c := &Catalog{byName: make(map[string]string, len(file.Documents))}
	for _, doc := range file.Documents {
		if doc.ID == "" || doc.Unit == "" {
			return nil, fmt.Errorf("KPI catalog entry must have both id and unit: %+v", doc)
		}
		key := Normalize(doc.Unit)
		if existing, ok := c.byName[key]; ok && existing != doc.ID {
			return nil, fmt.Errorf("KPI catalog maps unit %q to both %q and %q",
				doc.Unit, existing, doc.ID)
		}
		c.byName[key] = doc.ID
	}

	c.names = make([]string, 0, len(c.byName))
	for name := range c.byName {
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	return c, nil
}

// Lookup returns the document for an exactly (after normalization) matching
// unit name.
func (c *Catalog) Lookup(unitName string) (string, bool) {
	id, ok := c.byName[Normalize(unitName)]
	return id, ok
}

// LookupPartial returns the document of the first catalog unit whose name
// contains, or is contained in, the given name. Catalog names are scanned
// in sorted order so the result is deterministic.
func (c *Catalog) LookupPartial(unitName string) (docID, matched string, ok bool) {
	needle := Normalize(unitName)
	if needle == "" {
		return "", "", false
	}
	for _, name := range c.names {
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return c.byName[name], name, true
		}
	}
	return "", "", false
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.byName)
}

// BlockTable maps each top-level organizational block to a fallback KPI
// document chosen for semantic proximity. Curated by hand; validated
// against the hierarchy at startup.
type BlockTable struct {
	blocks map[string]string
}

// blockTableFile is the YAML shape of the block mapping table.
type blockTableFile struct {
	Blocks map[string]string `yaml:"blocks"`
}

// LoadBlockTable reads the block mapping table from a YAML file.
func LoadBlockTable(path string) (*BlockTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read block table: %w", err)
	}
	return ParseBlockTable(data)
}

// ParseBlockTable decodes a block mapping table from raw YAML.
func ParseBlockTable(data []byte) (*BlockTable, error) {
	var file blockTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse block table: %w", err)
	}

	t := &BlockTable{blocks: make(map[string]string, len(file.Blocks))}
	for block, docID := range file.Blocks {
		if docID == "" {
			return nil, fmt.Errorf("block table entry %q has an empty document id", block)
		}
		t.blocks[Normalize(block)] = docID
	}
	return t, nil
}

// Lookup returns the fallback document for a top-level block name.
func (t *BlockTable) Lookup(block string) (string, bool) {
	id, ok := t.blocks[Normalize(block)]
	return id, ok
}

// Normalize folds a unit name for lookup: lowercase, trimmed, inner
// whitespace collapsed.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
