package pkgname

import (
	"testing"

	"github.com/arthur-debert/npkg/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMapsBothWays(t *testing.T) {
	ix := NewIndex(map[string]string{
		"hello":   "hello-2.12.1",
		"ripgrep": "ripgrep-14.1.0",
	})

	assert.Equal(t, []string{"hello-2.12.1", "ripgrep-14.1.0"}, ix.ToNames([]string{"hello", "ripgrep"}))
	assert.Equal(t, []string{"hello", "ripgrep"}, ix.ToAttrs([]string{"hello-2.12.1", "ripgrep-14.1.0"}))
}

func TestIndexIdentityFallback(t *testing.T) {
	ix := NewIndex(map[string]string{"hello": "hello-2.12.1"})

	assert.Equal(t, []string{"unknown"}, ix.ToNames([]string{"unknown"}))
	assert.Equal(t, []string{"unknown-1.0"}, ix.ToAttrs([]string{"unknown-1.0"}))

	var nilIndex *Index
	assert.Equal(t, []string{"a"}, nilIndex.ToAttrs([]string{"a"}))
	assert.Equal(t, []string{"a"}, nilIndex.ToNames([]string{"a"}))
	assert.Equal(t, 0, nilIndex.Len())
}

func TestIndexDuplicateNames(t *testing.T) {
	ix := NewIndex(map[string]string{
		"python3":         "python3-3.11.9",
		"python311":       "python3-3.11.9",
		"python3Minimal":  "python3-minimal-3.11.9",
		"python3Packages": "python3-3.11.9",
	})

	assert.Equal(t, []string{"python3"}, ix.ToAttrs([]string{"python3-3.11.9"}))
	assert.Equal(t, []string{"python3-3.11.9"}, ix.ToNames([]string{"python3"}))
	// losing attributes are not mapped, which keeps the index one-to-one
	assert.Equal(t, []string{"python311"}, ix.ToNames([]string{"python311"}))
	assert.Equal(t, 2, ix.Len())
}

func TestLoadAndSave(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/cache", 0755))

	ix := NewIndex(map[string]string{"hello": "hello-2.12.1"})
	require.NoError(t, Save(fsys, "/cache/pnameref.json", ix))

	loaded := Load(fsys, "/cache/pnameref.json")
	assert.Equal(t, 1, loaded.Len())
	assert.Equal(t, []string{"hello"}, loaded.ToAttrs([]string{"hello-2.12.1"}))
}

func TestLoadToleratesMissingOrCorruptCache(t *testing.T) {
	fsys := filesystem.NewMemory()

	missing := Load(fsys, "/cache/pnameref.json")
	assert.Equal(t, 0, missing.Len())
	assert.Equal(t, []string{"hello-2.12.1"}, missing.ToAttrs([]string{"hello-2.12.1"}))

	require.NoError(t, fsys.MkdirAll("/cache", 0755))
	require.NoError(t, fsys.WriteFile("/cache/pnameref.json", []byte("{not json"), 0644))
	corrupt := Load(fsys, "/cache/pnameref.json")
	assert.Equal(t, 0, corrupt.Len())
}
