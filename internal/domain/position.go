package domain

import "fmt"

// PositionCategory classifies a position by the nature of its work.
type PositionCategory string

// Possible position categories.
const (
	CategoryManagement PositionCategory = "management"
	CategorySpecialist PositionCategory = "specialist"
	CategoryTechnical  PositionCategory = "technical"
	CategoryAnalytics  PositionCategory = "analytics"
)

// Position identifies a role attached to a business unit. Its identity is
// the pair (unit path, position name); the unit is referenced by path, not
// owned.
type Position struct {
	// UnitPath is the canonical path of the owning business unit.
	UnitPath string `json:"unit_path"`

	// Name is the position title as it appears in the hierarchy document.
	Name string `json:"name"`

	// Seniority is an ordinal level; lower values are more senior.
	Seniority int `json:"seniority"`

	// Category groups the position by kind of work.
	Category PositionCategory `json:"category"`
}

// Key returns the position's identity string within the index.
func (p *Position) Key() string {
	return PositionKey(p.UnitPath, p.Name)
}

// DisplayName renders the position together with its unit for UI lists.
func (p *Position) DisplayName() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.UnitPath)
}

// PositionKey builds the composite key for a position lookup.
func PositionKey(unitPath, name string) string {
	return unitPath + "::" + name
}

// isValidPositionCategory checks if the given category is known.
func isValidPositionCategory(c PositionCategory) bool {
	switch c {
	case CategoryManagement, CategorySpecialist, CategoryTechnical, CategoryAnalytics:
		return true
	default:
		return false
	}
}

// Validate checks if the Position has valid data.
func (p *Position) Validate() error {
	if p.UnitPath == "" {
		return fmt.Errorf("%w: position unit path cannot be empty", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: position name cannot be empty", ErrValidation)
	}
	if p.Category != "" && !isValidPositionCategory(p.Category) {
		return fmt.Errorf("%w: unknown position category %q", ErrValidation, p.Category)
	}
	return nil
}
