package combat

// EntryKind classifies a structured log entry.
type EntryKind string

const (
	LogAttack    EntryKind = "attack"
	LogDamage    EntryKind = "damage"
	LogSave      EntryKind = "save"
	LogResource  EntryKind = "resource"
	LogDefeated  EntryKind = "defeated"
	LogCondition EntryKind = "condition"
	LogSkip      EntryKind = "skip"
	LogSpell     EntryKind = "spell"
	LogHeal      EntryKind = "heal"
)

// Entry is one structured log record of an encounter.
type Entry struct {
	Round  int       `json:"round"`
	Actor  string    `json:"actor"`
	Kind   EntryKind `json:"kind"`
	Target string    `json:"target,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Amount int       `json:"amount,omitempty"`
}

// Log collects entries for one encounter. A nil *Log discards everything, so
// callers never need to check whether logging is enabled.
type Log struct {
	entries []Entry
}

// Add appends e.
func (l *Log) Add(e Entry) {
	if l == nil {
		return
	}
	l.entries = append(l.entries, e)
}

// Entries returns the collected entries in order.
func (l *Log) Entries() []Entry {
	if l == nil {
		return nil
	}
	return l.entries
}
