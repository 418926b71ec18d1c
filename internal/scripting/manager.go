package scripting

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/game/ability"
	"github.com/cory-johannsen/dpr/internal/game/combat"
)

// Manager owns the compiled scripts of one run.
//
// Manager is safe for concurrent use after loading completes: compiled
// function prototypes are immutable and each ability builds its own LState.
type Manager struct {
	protos    map[string]*lua.FunctionProto
	instLimit int
	logger    *zap.Logger
}

// NewManager creates an empty Manager.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: a nil logger is replaced with zap.NewNop().
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		protos:    make(map[string]*lua.FunctionProto),
		instLimit: instLimit,
		logger:    logger,
	}
}

// Compile parses and compiles src as the script name.
//
// Postcondition: returns an error on a syntax error or duplicate name.
func (m *Manager) Compile(name, src string) error {
	if name == "" {
		return fmt.Errorf("scripting: script name must not be empty")
	}
	if _, ok := m.protos[name]; ok {
		return fmt.Errorf("scripting: script %q already loaded", name)
	}
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("scripting: parsing %q: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	m.protos[name] = proto
	return nil
}

// LoadDirectory compiles every *.lua file under dir. A script's name is its
// file name without the extension.
//
// Precondition: dir must be a readable directory.
func (m *Manager) LoadDirectory(dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".lua" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	sort.Strings(files)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scripting: reading %q: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".lua")
		if err := m.Compile(name, string(data)); err != nil {
			return err
		}
	}
	m.logger.Debug("scripts loaded", zap.String("dir", dir), zap.Int("count", len(files)))
	return nil
}

// Names returns every loaded script name sorted alphabetically.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.protos))
	for name := range m.protos {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Register adds one builder per script to reg, under the script's name.
//
// Postcondition: returns an error if a script name collides with an
// already registered ability.
func (m *Manager) Register(reg *ability.Registry) error {
	for _, name := range m.Names() {
		err := reg.Register(name, func(p ability.Params) (combat.Ability, error) {
			a, err := m.NewAbility(name, p)
			if err != nil {
				return nil, err
			}
			return a, nil
		})
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
	}
	return nil
}

// NewAbility returns an unattached ability running the named script.
func (m *Manager) NewAbility(name string, params ability.Params) (*Ability, error) {
	proto, ok := m.protos[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ability.ErrUnknownAbility, name)
	}
	return &Ability{
		name:      name,
		proto:     proto,
		params:    params,
		instLimit: m.instLimit,
		logger:    m.logger.With(zap.String("script", name)),
	}, nil
}
