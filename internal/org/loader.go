package org

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/profilegen/profilegen-api/internal/domain"
)

// PositionNode describes a position attached to a hierarchy node.
type PositionNode struct {
	Name      string `yaml:"name"`
	Seniority int    `yaml:"seniority"`
	Category  string `yaml:"category"`
}

// Node is one unit in the nested hierarchy document.
type Node struct {
	Name      string         `yaml:"name"`
	Positions []PositionNode `yaml:"positions"`
	Units     []*Node        `yaml:"units"`
}

// hierarchyDocument is the top-level shape of the hierarchy file.
type hierarchyDocument struct {
	Organization string  `yaml:"organization"`
	Units        []*Node `yaml:"units"`
}

// LoadHierarchy reads a YAML hierarchy document and returns the root node.
// The organization name becomes the root unit; top-level units become the
// organization's blocks.
func LoadHierarchy(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy file: %w", err)
	}
	return ParseHierarchy(data)
}

// ParseHierarchy decodes a hierarchy document from raw YAML.
func ParseHierarchy(data []byte) (*Node, error) {
	var doc hierarchyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedHierarchy, err)
	}

	if doc.Organization == "" {
		return nil, fmt.Errorf("%w: organization name is missing", domain.ErrMalformedHierarchy)
	}

	return &Node{
		Name:  doc.Organization,
		Units: doc.Units,
	}, nil
}
