package creature

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxLevel is the highest character level the catalog materialises.
const MaxLevel = 20

// ErrUnknownDefinition is returned for IDs that are not in the catalog.
var ErrUnknownDefinition = errors.New("creature: unknown definition")

// file is the YAML shape of one catalog document: a base definition inline
// plus optional per-level overrides applied cumulatively in ascending order.
type file struct {
	Definition `yaml:",inline"`
	Levels     map[int]yaml.Node `yaml:"levels"`
}

type entry struct {
	byLevel [MaxLevel + 1]*Definition
	fixed   *Definition // set when the document has no level overrides
}

// Catalog maps definition IDs to validated, immutable Definitions per level.
// A Catalog is read-only once built and safe for concurrent use.
type Catalog struct {
	entries map[string]*entry
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*entry)}
}

// Add registers a single fixed definition used for every requested level.
//
// Postcondition: returns an error if def is invalid or its ID is taken.
func (c *Catalog) Add(def *Definition) error {
	def.normalize()
	if err := def.Validate(); err != nil {
		return err
	}
	if _, dup := c.entries[def.ID]; dup {
		return fmt.Errorf("creature %q: duplicate definition", def.ID)
	}
	c.entries[def.ID] = &entry{fixed: def}
	return nil
}

// Get returns the definition of id at level. The generic target ID resolves
// without being registered.
func (c *Catalog) Get(id string, level int) (*Definition, error) {
	if level < 1 || level > MaxLevel {
		return nil, fmt.Errorf("creature %q: level %d outside [1, %d]", id, level, MaxLevel)
	}
	if id == GenericTargetID {
		return GenericTarget(level), nil
	}
	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefinition, id)
	}
	if e.fixed != nil {
		return e.fixed, nil
	}
	return e.byLevel[level], nil
}

// IDs returns every registered ID sorted alphabetically.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.entries))
	for id := range c.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadFromBytes parses one catalog document and registers it.
//
// Postcondition: on error nothing is registered.
func (c *Catalog) LoadFromBytes(data []byte) error {
	var doc file
	if err := strictDecode(data, &doc); err != nil {
		return fmt.Errorf("parsing creature YAML: %w", err)
	}
	if len(doc.Levels) == 0 {
		def := doc.Definition
		return c.Add(&def)
	}

	levels := make([]int, 0, len(doc.Levels))
	for lvl := range doc.Levels {
		if lvl < 1 || lvl > MaxLevel {
			return fmt.Errorf("creature %q: override level %d outside [1, %d]", doc.ID, lvl, MaxLevel)
		}
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	e := &entry{}
	for lvl := 1; lvl <= MaxLevel; lvl++ {
		var fresh file
		if err := strictDecode(data, &fresh); err != nil {
			return fmt.Errorf("creature %q: %w", doc.ID, err)
		}
		def := fresh.Definition
		for _, over := range levels {
			if over > lvl {
				break
			}
			node := doc.Levels[over]
			if err := decodeNode(&node, &def); err != nil {
				return fmt.Errorf("creature %q level %d: %w", doc.ID, over, err)
			}
		}
		def.Level = lvl
		def.normalize()
		if err := def.Validate(); err != nil {
			return fmt.Errorf("level %d: %w", lvl, err)
		}
		e.byLevel[lvl] = &def
	}
	if _, dup := c.entries[doc.ID]; dup {
		return fmt.Errorf("creature %q: duplicate definition", doc.ID)
	}
	c.entries[doc.ID] = e
	return nil
}

// LoadDirectory reads every *.yaml file under dir (recursively) into a new Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns an error on the first parse or validation failure.
func LoadDirectory(dir string) (*Catalog, error) {
	c := NewCatalog()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := c.LoadFromBytes(data); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creature.LoadDirectory %q: %w", dir, err)
	}
	return c, nil
}

func strictDecode(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// decodeNode applies a level override onto def with unknown-field checking.
func decodeNode(node *yaml.Node, def *Definition) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	return strictDecode(raw, def)
}
