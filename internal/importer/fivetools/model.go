package fivetools

import "encoding/json"

// Bestiary is the parsed form of a 5etools bestiary-*.json file.
type Bestiary struct {
	Monster []Monster `json:"monster"`
}

// Monster is one stat block. Fields whose shape varies between entries are
// kept raw and decoded by the converter.
type Monster struct {
	Name       string            `json:"name"`
	Source     string            `json:"source"`
	AC         json.RawMessage   `json:"ac"`
	HP         *HitPoints        `json:"hp"`
	CR         json.RawMessage   `json:"cr"`
	Str        *int              `json:"str"`
	Dex        *int              `json:"dex"`
	Con        *int              `json:"con"`
	Int        *int              `json:"int"`
	Wis        *int              `json:"wis"`
	Cha        *int              `json:"cha"`
	Save       map[string]string `json:"save"`
	Resist     json.RawMessage   `json:"resist"`
	Vulnerable json.RawMessage   `json:"vulnerable"`
	Immune     json.RawMessage   `json:"immune"`
	Action     []Entry           `json:"action"`
}

// HitPoints holds either an average or a special rule such as "see below".
type HitPoints struct {
	Average *int   `json:"average"`
	Formula string `json:"formula"`
	Special string `json:"special"`
}

// Entry is a named block of rules text.
type Entry struct {
	Name    string            `json:"name"`
	Entries []json.RawMessage `json:"entries"`
}

// Text joins the string entries of e; nested list objects are skipped.
func (e Entry) Text() string {
	var out string
	for _, raw := range e.Entries {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			continue
		}
		if out != "" {
			out += " "
		}
		out += s
	}
	return out
}
