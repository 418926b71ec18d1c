package fivetools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cory-johannsen/dpr/internal/importer"
)

// Source implements importer.Source for 5etools bestiary JSON files.
type Source struct{}

// NewSource returns a 5etools Source.
func NewSource() *Source { return &Source{} }

// Load reads a single bestiary file, or every *.json file in a directory,
// and converts each monster.
//
// Precondition: path must be a JSON file or a directory.
// Postcondition: monsters that cannot be converted are reported as warnings;
// an error is returned when nothing at all converts.
func (s *Source) Load(path string) ([]*importer.MonsterData, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading source %s: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, nil, fmt.Errorf("listing %s: %w", path, err)
		}
		sort.Strings(files)
	}

	var (
		out      []*importer.MonsterData
		warnings []string
	)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", f, err)
		}
		b, err := ParseBestiary(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f, err)
		}
		for i := range b.Monster {
			md, err := ConvertMonster(&b.Monster[i])
			if err != nil {
				warnings = append(warnings, err.Error())
				continue
			}
			out = append(out, md)
		}
	}
	if len(out) == 0 {
		return nil, warnings, fmt.Errorf("no importable monsters in %s", path)
	}
	return out, warnings, nil
}
