package sim

import (
	"time"

	"github.com/cory-johannsen/dpr/internal/game/combat"
)

// PartyLabel labels the combined row of a party with more than one member.
const PartyLabel = "party"

// Row aggregates one label (a party member or the whole party) at one level.
type Row struct {
	Level int    `json:"level"`
	Label string `json:"label"`
	// DPR summarises damage per round, one sample per successful iteration.
	DPR Summary `json:"dpr"`

	// Encounter outcomes across every successful iteration of the level.
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Stalemates int     `json:"stalemates"`
	Draws      int     `json:"draws"`
	MeanRounds float64 `json:"mean_rounds"`

	// Failures counts iterations of the level excluded from the statistics.
	Failures int `json:"failures"`
	// Spends totals resource units spent, by resource name.
	Spends map[string]int `json:"spends,omitempty"`
}

// WinRate returns the fraction of encounters the party won.
func (r Row) WinRate() float64 {
	total := r.Wins + r.Losses + r.Stalemates + r.Draws
	if total == 0 {
		return 0
	}
	return float64(r.Wins) / float64(total)
}

// IterationLog holds the structured log of one retained encounter.
type IterationLog struct {
	Level     int            `json:"level"`
	Iteration int            `json:"iteration"`
	Encounter int            `json:"encounter"`
	Entries   []combat.Entry `json:"entries"`
}

// Report is the result of one run.
type Report struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Request   Request        `json:"request"`
	Rows      []Row          `json:"rows"`
	Logs      []IterationLog `json:"logs,omitempty"`
	// Completed counts iterations that contributed to the statistics.
	Completed int `json:"completed"`
	Failures  int `json:"failures"`
	// Truncated is set when the budget expired before every iteration ran.
	Truncated bool          `json:"truncated"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Row returns the row for (level, label).
func (r *Report) Row(level int, label string) (Row, bool) {
	for _, row := range r.Rows {
		if row.Level == level && row.Label == label {
			return row, true
		}
	}
	return Row{}, false
}

// buildRows reduces the days of one plan, in iteration order, into rows.
// days[i] is nil for iterations that failed or never ran.
func buildRows(p *plan, days []*DayResult, failures int) ([]Row, []IterationLog) {
	labels := make([]string, 0, len(p.party)+1)
	for _, sl := range p.party {
		labels = append(labels, sl.id)
	}
	if len(p.party) > 1 {
		labels = append(labels, PartyLabel)
	}

	samples := make(map[string][]float64, len(labels))
	spends := make(map[string]map[string]int, len(labels))
	for _, l := range labels {
		spends[l] = make(map[string]int)
	}
	var wins, losses, stalemates, draws, rounds, encounters int
	var logs []IterationLog

	for _, d := range days {
		if d == nil {
			continue
		}
		for _, sl := range p.party {
			samples[sl.id] = append(samples[sl.id], d.DPR(sl.id))
			for name, n := range d.Spends[sl.id] {
				spends[sl.id][name] += n
				if len(p.party) > 1 {
					spends[PartyLabel][name] += n
				}
			}
		}
		if len(p.party) > 1 {
			samples[PartyLabel] = append(samples[PartyLabel], d.PartyDPR())
		}
		for _, e := range d.Encounters {
			encounters++
			rounds += e.Rounds
			switch {
			case e.Outcome == combat.Victory && e.Winner == combat.TeamParty:
				wins++
			case e.Outcome == combat.Victory:
				losses++
			case e.Outcome == combat.Stalemate:
				stalemates++
			case e.Outcome == combat.Draw:
				draws++
			}
			if len(e.Log) > 0 {
				logs = append(logs, IterationLog{Level: p.level, Iteration: d.Iteration, Encounter: e.Index, Entries: e.Log})
			}
		}
	}

	var meanRounds float64
	if encounters > 0 {
		meanRounds = float64(rounds) / float64(encounters)
	}
	rows := make([]Row, 0, len(labels))
	for _, l := range labels {
		row := Row{
			Level:      p.level,
			Label:      l,
			DPR:        Summarize(samples[l]),
			Wins:       wins,
			Losses:     losses,
			Stalemates: stalemates,
			Draws:      draws,
			MeanRounds: meanRounds,
			Failures:   failures,
		}
		if len(spends[l]) > 0 {
			row.Spends = spends[l]
		}
		rows = append(rows, row)
	}
	return rows, logs
}
