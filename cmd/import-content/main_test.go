package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bestiary = `{"monster": [{
  "name": "Bandit Captain",
  "ac": [{"ac": 15}],
  "hp": {"average": 65},
  "cr": "2",
  "str": 15, "dex": 16, "con": 14, "int": 14, "wis": 11, "cha": 14,
  "action": [
    {"name": "Multiattack", "entries": ["The captain makes three melee attacks: two with its scimitar and one with its dagger."]},
    {"name": "Scimitar", "entries": ["{@atk mw} {@hit 5} to hit, reach 5 ft., one target. {@h}6 ({@damage 1d6 + 3}) slashing damage."]}
  ]
}]}`

func TestImportContent_WritesCatalogFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bestiary.json")
	require.NoError(t, os.WriteFile(src, []byte(bestiary), 0644))
	outDir := t.TempDir()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--source", src, "--output", outDir})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(outDir, "bandit_captain.yaml"))
	assert.Contains(t, out.String(), "import complete")
}

func TestImportContent_Errors(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "gomud", "--source", "x"})
	assert.ErrorContains(t, cmd.Execute(), "unknown format")

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
