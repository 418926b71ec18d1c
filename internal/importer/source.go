package importer

// MonsterData is the common intermediate format produced by all Source
// implementations. Its YAML tags match the creature catalog schema, so it can
// be marshalled directly and validated by creature.Catalog.LoadFromBytes.
type MonsterData struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Kind            string         `yaml:"kind"`
	Level           int            `yaml:"level"`
	Proficiency     int            `yaml:"proficiency,omitempty"`
	Stats           StatsSpec      `yaml:"stats"`
	MaxHP           int            `yaml:"max_hp"`
	AC              int            `yaml:"ac"`
	Saves           map[string]int `yaml:"saves,omitempty"`
	Resistances     []string       `yaml:"resistances,omitempty"`
	Vulnerabilities []string       `yaml:"vulnerabilities,omitempty"`
	Immunities      []string       `yaml:"immunities,omitempty"`
	Targeting       string         `yaml:"targeting,omitempty"`
	Actions         []ActionSpec   `yaml:"actions"`
}

// StatsSpec holds the six ability scores.
type StatsSpec struct {
	Str int `yaml:"str"`
	Dex int `yaml:"dex"`
	Con int `yaml:"con"`
	Int int `yaml:"int"`
	Wis int `yaml:"wis"`
	Cha int `yaml:"cha"`
}

// ActionSpec holds a single attack.
type ActionSpec struct {
	ID     string       `yaml:"id"`
	Name   string       `yaml:"name,omitempty"`
	Count  int          `yaml:"count,omitempty"`
	ToHit  int          `yaml:"to_hit"`
	Range  string       `yaml:"range,omitempty"`
	Damage []DamageSpec `yaml:"damage"`
}

// DamageSpec holds one damage component of an attack.
type DamageSpec struct {
	Dice string `yaml:"dice,omitempty"`
	Flat int    `yaml:"flat,omitempty"`
	Type string `yaml:"type"`
}

// Source loads monsters from a format-specific file or directory and
// produces MonsterData ready to be written as catalog YAML files.
//
// Precondition: path must exist and hold the layout expected by the format.
// Postcondition: returns at least one MonsterData, or a non-nil error. Each
// warning names a monster that was skipped or imported incompletely.
type Source interface {
	Load(path string) (monsters []*MonsterData, warnings []string, err error)
}
