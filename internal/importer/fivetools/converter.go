package fivetools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/importer"
)

// specialHP is the hit point total used for monsters whose hp is a rule
// rather than a number.
const specialHP = 50

var (
	hitRe    = regexp.MustCompile(`\{@hit (-?\d+)\}`)
	atkRe    = regexp.MustCompile(`\{@atk ([a-z,]+)\}`)
	damageRe = regexp.MustCompile(`\{@damage ([^}]+)\}\)?\s+(\w+) damage`)
	multiRe  = regexp.MustCompile(`(?i)makes (two|three|four|five) (?:\w+ )?attacks`)
)

var multiCounts = map[string]int{"two": 2, "three": 3, "four": 4, "five": 5}

// proficiencyByCR follows the monster proficiency table of the 2014 rules.
func proficiencyByCR(cr float64) int {
	switch {
	case cr < 5:
		return 2
	case cr < 9:
		return 3
	case cr < 13:
		return 4
	case cr < 17:
		return 5
	case cr < 21:
		return 6
	case cr < 25:
		return 7
	case cr < 29:
		return 8
	default:
		return 9
	}
}

// ParseCR parses a challenge rating such as "1/4", "5" or {"cr": "2"}.
//
// Postcondition: fractions are returned as their decimal value.
func ParseCR(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing cr")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			CR string `json:"cr"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.CR == "" {
			return 0, fmt.Errorf("unrecognised cr %s", raw)
		}
		s = obj.CR
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.Atoi(num)
		d, err2 := strconv.Atoi(den)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, fmt.Errorf("unrecognised cr %q", s)
		}
		return float64(n) / float64(d), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognised cr %q", s)
	}
	return v, nil
}

// LevelForCR maps a challenge rating onto the catalog's level field.
// Fractional ratings become level 1.
func LevelForCR(cr float64) int {
	return min(max(int(cr), 1), 30)
}

// parseAC accepts 15, [15], [{"ac": 15, ...}] and returns the first value.
func parseAC(raw json.RawMessage) (int, bool) {
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n, n > 0
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil || len(list) == 0 {
		return 0, false
	}
	if json.Unmarshal(list[0], &n) == nil {
		return n, n > 0
	}
	var obj struct {
		AC int `json:"ac"`
	}
	if json.Unmarshal(list[0], &obj) == nil {
		return obj.AC, obj.AC > 0
	}
	return 0, false
}

// parseDamageTypes flattens a resist/vulnerable/immune list. Entries are
// either plain strings or objects holding a nested list under key.
func parseDamageTypes(raw json.RawMessage, key string) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil {
		return nil
	}
	var out []string
	for _, item := range list {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]json.RawMessage
		if json.Unmarshal(item, &obj) != nil {
			continue
		}
		out = append(out, parseDamageTypes(obj[key], key)...)
	}
	return out
}

func score(v *int) int {
	if v == nil {
		return 10
	}
	return *v
}

// parseAttack extracts an attack from one action entry. It returns false
// when the entry is not an attack roll with damage.
func parseAttack(e Entry) (importer.ActionSpec, bool) {
	text := e.Text()
	hit := hitRe.FindStringSubmatch(text)
	if hit == nil {
		return importer.ActionSpec{}, false
	}
	toHit, _ := strconv.Atoi(hit[1])

	act := importer.ActionSpec{
		ID:    importer.NameToID(e.Name),
		Name:  e.Name,
		ToHit: toHit,
		Range: "melee",
	}
	if atk := atkRe.FindStringSubmatch(text); atk != nil && !strings.Contains(atk[1], "m") {
		act.Range = "ranged"
	}
	for _, m := range damageRe.FindAllStringSubmatch(text, -1) {
		expr, err := dice.Parse(strings.ReplaceAll(m[1], " ", ""))
		if err != nil {
			continue
		}
		act.Damage = append(act.Damage, importer.DamageSpec{
			Dice: fmt.Sprintf("%dd%d", expr.Count, expr.Sides),
			Flat: expr.Modifier,
			Type: strings.ToLower(m[2]),
		})
	}
	if len(act.Damage) == 0 || act.ID == "" {
		return importer.ActionSpec{}, false
	}
	return act, true
}

// ConvertMonster converts one 5etools stat block into catalog form.
//
// Precondition: m must be non-nil.
// Postcondition: returns a MonsterData with at least one attack, or an error
// explaining why the monster cannot be simulated.
func ConvertMonster(m *Monster) (*importer.MonsterData, error) {
	id := importer.NameToID(m.Name)
	if id == "" {
		return nil, fmt.Errorf("monster %q: name yields an empty id", m.Name)
	}
	ac, ok := parseAC(m.AC)
	if !ok {
		return nil, fmt.Errorf("monster %q: no armor class", m.Name)
	}
	if m.HP == nil {
		return nil, fmt.Errorf("monster %q: no hit points", m.Name)
	}
	hp := specialHP
	if m.HP.Average != nil {
		hp = *m.HP.Average
	}
	cr, err := ParseCR(m.CR)
	if err != nil {
		return nil, fmt.Errorf("monster %q: %w", m.Name, err)
	}

	out := &importer.MonsterData{
		ID:          id,
		Name:        m.Name,
		Kind:        "monster",
		Level:       LevelForCR(cr),
		Proficiency: proficiencyByCR(cr),
		Stats: importer.StatsSpec{
			Str: score(m.Str), Dex: score(m.Dex), Con: score(m.Con),
			Int: score(m.Int), Wis: score(m.Wis), Cha: score(m.Cha),
		},
		MaxHP:           max(hp, 1),
		AC:              ac,
		Resistances:     parseDamageTypes(m.Resist, "resist"),
		Vulnerabilities: parseDamageTypes(m.Vulnerable, "vulnerable"),
		Immunities:      parseDamageTypes(m.Immune, "immune"),
	}
	for stat, bonus := range m.Save {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(bonus), "+"))
		if err != nil {
			continue
		}
		if out.Saves == nil {
			out.Saves = make(map[string]int)
		}
		out.Saves[strings.ToLower(stat)] = n
	}

	multi := 1
	for _, e := range m.Action {
		if strings.EqualFold(e.Name, "Multiattack") {
			if mm := multiRe.FindStringSubmatch(e.Text()); mm != nil {
				multi = multiCounts[strings.ToLower(mm[1])]
			}
			continue
		}
		if act, ok := parseAttack(e); ok {
			out.Actions = append(out.Actions, act)
		}
	}
	if len(out.Actions) == 0 {
		return nil, fmt.Errorf("monster %q: no attack actions", m.Name)
	}
	if multi > 1 {
		// Multiattack is applied to the first listed attack.
		out.Actions[0].Count = multi
	}
	return out, nil
}
