package creature

// GenericTargetID is the catalog ID of the level-scaled practice target.
const GenericTargetID = "generic_target"

// DummyHP is the hit point total of the generic target. It is large enough
// that no build can defeat it inside any permitted round cap, so every point
// of damage dealt is recorded.
const DummyHP = 1 << 30

var targetAC = [MaxLevel]int{13, 13, 13, 14, 15, 15, 15, 16, 16, 17, 17, 17, 18, 18, 18, 18, 19, 19, 19, 19}

// TargetAC returns the expected monster armor class at a character level.
func TargetAC(level int) int {
	level = min(max(level, 1), MaxLevel)
	return targetAC[level-1]
}

// TargetSaveBonus returns the expected monster save bonus at a character level.
func TargetSaveBonus(level int) int {
	level = min(max(level, 1), MaxLevel)
	bonus := 3
	switch {
	case level >= 8:
		bonus = 5
	case level >= 4:
		bonus = 4
	}
	return ProficiencyForLevel(level) + bonus
}

// GenericTarget returns a target that never acts, uses the expected AC and
// saves for level, and cannot realistically be defeated.
func GenericTarget(level int) *Definition {
	level = min(max(level, 1), MaxLevel)
	save := TargetSaveBonus(level)
	saves := make(map[Stat]int, len(AllStats))
	for _, s := range AllStats {
		saves[s] = save
	}
	return &Definition{
		ID:            GenericTargetID,
		Name:          "Target",
		Kind:          KindMonster,
		Level:         level,
		Proficiency:   ProficiencyForLevel(level),
		Stats:         Stats{Str: 10, Dex: 10, Con: 10, Int: 10, Wis: 10, Cha: 10},
		MaxHP:         DummyHP,
		AC:            TargetAC(level),
		SaveOverrides: saves,
	}
}
