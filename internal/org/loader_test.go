package org

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegen/profilegen-api/internal/domain"
)

func TestLoadHierarchy(t *testing.T) {
	t.Parallel()

	root, err := LoadHierarchy("testdata/hierarchy.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Horizon Group", root.Name)
	require.Len(t, root.Units, 3)
	assert.Equal(t, "IT Block", root.Units[0].Name)
	require.NotEmpty(t, root.Units[0].Positions)
	assert.Equal(t, "CIO", root.Units[0].Positions[0].Name)
}

func TestLoadHierarchyMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadHierarchy("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

func TestParseHierarchyErrors(t *testing.T) {
	t.Parallel()

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseHierarchy([]byte("organization: [unclosed"))
		assert.ErrorIs(t, err, domain.ErrMalformedHierarchy)
	})

	t.Run("missing organization name", func(t *testing.T) {
		_, err := ParseHierarchy([]byte("units:\n  - name: IT Block\n"))
		assert.ErrorIs(t, err, domain.ErrMalformedHierarchy)
	})
}
