package fivetools_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dpr/internal/importer/fivetools"
)

func TestSource_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bestiary-mm.json"), []byte(bestiary), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	monsters, warnings, err := fivetools.NewSource().Load(dir)
	require.NoError(t, err)
	assert.Len(t, monsters, 3)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Commoner Spirit")
}

func TestSource_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json")
	require.NoError(t, os.WriteFile(path, []byte(bestiary), 0644))
	monsters, _, err := fivetools.NewSource().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "goblin", monsters[0].ID)
}

func TestSource_Errors(t *testing.T) {
	_, _, err := fivetools.NewSource().Load("/nonexistent/bestiary.json")
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"monster": []}`), 0644))
	_, _, err = fivetools.NewSource().Load(empty)
	assert.ErrorContains(t, err, "no importable monsters")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`not json`), 0644))
	_, _, err = fivetools.NewSource().Load(bad)
	assert.Error(t, err)
}
