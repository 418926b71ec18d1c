package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/config"
	"github.com/cory-johannsen/dpr/internal/game/ability"
	"github.com/cory-johannsen/dpr/internal/game/condition"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/scripting"
)

// content is everything a simulation reads from disk.
type content struct {
	catalog    *creature.Catalog
	abilities  *ability.Registry
	conditions *condition.Registry
	scripts    []string
}

// loadContent reads the catalog, optional conditions and optional scripts
// named by cfg. Scripts register as abilities under their file names.
func loadContent(cfg config.ContentConfig, logger *zap.Logger) (*content, error) {
	catalog, err := creature.LoadDirectory(cfg.Creatures)
	if err != nil {
		return nil, err
	}
	c := &content{
		catalog:    catalog,
		abilities:  ability.NewRegistry(),
		conditions: condition.Builtin(),
	}
	if cfg.Conditions != "" {
		if c.conditions, err = condition.LoadDirectory(cfg.Conditions); err != nil {
			return nil, err
		}
	}
	if cfg.Scripts != "" {
		mgr := scripting.NewManager(cfg.InstructionLimit, logger)
		if err := mgr.LoadDirectory(cfg.Scripts); err != nil {
			return nil, err
		}
		if err := mgr.Register(c.abilities); err != nil {
			return nil, err
		}
		c.scripts = mgr.Names()
	}
	logger.Debug("content loaded",
		zap.Int("definitions", len(catalog.IDs())),
		zap.Int("conditions", len(c.conditions.All())),
		zap.Strings("scripts", c.scripts),
	)
	return c, nil
}

// check resolves every definition at every level and builds its abilities,
// returning all problems found.
func (c *content) check() []error {
	var errs []error
	for _, id := range c.catalog.IDs() {
		for lvl := 1; lvl <= creature.MaxLevel; lvl++ {
			def, err := c.catalog.Get(id, lvl)
			if err != nil {
				errs = append(errs, err)
				break
			}
			if _, err := c.abilities.BuildAll(def); err != nil {
				errs = append(errs, fmt.Errorf("%s at level %d: %w", id, lvl, err))
				break
			}
		}
	}
	return errs
}
