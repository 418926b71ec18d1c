// Package importer converts third-party monster data into creature catalog
// YAML files.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dpr/internal/game/creature"
)

// Importer orchestrates content import from a Source to an output directory.
type Importer struct {
	source Source
	out    io.Writer
}

// New constructs an Importer backed by the given Source that reports
// progress to out.
//
// Precondition: source and out must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, out io.Writer) *Importer {
	return &Importer{source: source, out: out}
}

// Run loads monsters from path, validates each against the catalog schema,
// and writes them as YAML files to outputDir. Each output file is named
// <monster_id>.yaml.
//
// Precondition: outputDir must exist or be creatable.
// Postcondition: one YAML file per imported monster is written to outputDir,
// or an error is returned. Returns the number of files written.
func (imp *Importer) Run(path, outputDir string) (int, error) {
	overall := time.Now()

	t0 := time.Now()
	monsters, warnings, err := imp.source.Load(path)
	if err != nil {
		return 0, fmt.Errorf("loading source: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(imp.out, "skip    %s\n", w)
	}
	fmt.Fprintf(imp.out, "load    %d monster(s) in %s\n", len(monsters), time.Since(t0).Round(time.Millisecond))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	written := 0
	seen := make(map[string]bool, len(monsters))
	for _, m := range monsters {
		if seen[m.ID] {
			fmt.Fprintf(imp.out, "skip    %s: duplicate id\n", m.ID)
			continue
		}
		seen[m.ID] = true

		data, err := yaml.Marshal(m)
		if err != nil {
			return written, fmt.Errorf("serialising monster %q: %w", m.ID, err)
		}
		// Validate output is loadable before writing.
		if err := creature.NewCatalog().LoadFromBytes(data); err != nil {
			return written, fmt.Errorf("monster %q failed validation: %w", m.ID, err)
		}

		outPath := filepath.Join(outputDir, m.ID+".yaml")
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return written, fmt.Errorf("writing monster %q to %s: %w", m.ID, outPath, err)
		}
		written++
		fmt.Fprintf(imp.out, "wrote   %s  (level %d, %d attack(s))\n", outPath, m.Level, len(m.Actions))
	}

	fmt.Fprintf(imp.out, "total   %d file(s) in %s\n", written, time.Since(overall).Round(time.Millisecond))
	return written, nil
}
