package domain

import (
	"strings"
)

// PathDelimiter joins path segments into a canonical unit path string.
// Unit names are not guaranteed unique across the hierarchy; full paths are.
const PathDelimiter = " / "

// BusinessUnit is a node in the organizational hierarchy, identified by its
// full path from the root. Instances are owned by the organization index and
// are immutable once the index is built.
type BusinessUnit struct {
	// Path is the ordered list of segment names from the root to this unit.
	// The first segment is the organization's name.
	Path []string `json:"path"`

	// Name is the display name of the unit (the last path segment).
	Name string `json:"name"`

	// Level is the nesting depth; the root unit is level 0.
	Level int `json:"level"`

	// Positions are the position names attached directly to this unit.
	Positions []string `json:"positions,omitempty"`
}

// PathKey returns the canonical path string used as the unit's identity.
func (u *BusinessUnit) PathKey() string {
	return JoinPath(u.Path)
}

// ParentKey returns the canonical path of the unit's parent, or the empty
// string for the root unit.
func (u *BusinessUnit) ParentKey() string {
	if len(u.Path) <= 1 {
		return ""
	}
	return JoinPath(u.Path[:len(u.Path)-1])
}

// Block returns the unit's top-level block: the first path segment under the
// root. The root unit's block is its own name.
func (u *BusinessUnit) Block() string {
	if len(u.Path) == 0 {
		return u.Name
	}
	return BlockSegment(u.Path)
}

// BlockSegment returns the top-level block for a segmented path: the
// segment directly under the root, or the root itself for a single-segment
// path.
func BlockSegment(segments []string) string {
	if len(segments) >= 2 {
		return segments[1]
	}
	if len(segments) == 1 {
		return segments[0]
	}
	return ""
}

// JoinPath joins path segments with the canonical delimiter.
func JoinPath(segments []string) string {
	return strings.Join(segments, PathDelimiter)
}

// SplitPath splits a canonical path string back into its segments.
// Surrounding whitespace on each segment is trimmed so that hand-typed
// paths with uneven spacing still resolve. Segment names must not contain
// the delimiter character; the index rejects hierarchies that do.
func SplitPath(path string) []string {
	raw := strings.Split(path, strings.TrimSpace(PathDelimiter))
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
