package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/runner"
	"github.com/cory-johannsen/dpr/internal/sim"
	"github.com/cory-johannsen/dpr/internal/storage/postgres"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport prints one line per row followed by a summary line.
func writeReport(w io.Writer, rep *sim.Report, src runner.Source) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LEVEL\tLABEL\tDPR\tSTDDEV\tP10\tP50\tP90\tWIN%\tROUNDS\tFAILED\tSPENDS\t")
	for _, row := range rep.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f\t%.2f\t%d\t%s\t\n",
			row.Level, row.Label, row.DPR.Mean, row.DPR.StdDev, row.DPR.P10, row.DPR.P50, row.DPR.P90,
			100*row.WinRate(), row.MeanRounds, row.Failures, formatSpends(row.Spends))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	status := "complete"
	if rep.Truncated {
		status = "truncated"
	}
	_, err := fmt.Fprintf(w, "run %s (%s, %s): %d iterations, %d failed, %s\n",
		rep.ID, src, status, rep.Completed, rep.Failures, rep.Elapsed.Round(time.Millisecond))
	return err
}

func formatSpends(spends map[string]int) string {
	if len(spends) == 0 {
		return "-"
	}
	names := make([]string, 0, len(spends))
	for name := range spends {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, spends[name])
	}
	return strings.Join(parts, ",")
}

// writeTargets prints the generic target's statistics at every level.
func writeTargets(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LEVEL\tAC\tSAVE\tPROF\t")
	for lvl := 1; lvl <= creature.MaxLevel; lvl++ {
		fmt.Fprintf(tw, "%d\t%d\t%+d\t%+d\t\n",
			lvl, creature.TargetAC(lvl), creature.TargetSaveBonus(lvl), creature.ProficiencyForLevel(lvl))
	}
	return tw.Flush()
}

func writeRuns(w io.Writer, runs []postgres.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tPARTY\tLEVELS\tITERATIONS\tTRUNCATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), strings.Join(r.Party, ","),
			formatLevels(r.Levels), r.Iterations, r.Truncated)
	}
	return tw.Flush()
}

// formatLevels collapses consecutive levels into ranges: 1-3,5.
func formatLevels(levels []int) string {
	var parts []string
	for i := 0; i < len(levels); {
		j := i
		for j+1 < len(levels) && levels[j+1] == levels[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, fmt.Sprintf("%d-%d", levels[i], levels[j]))
		} else {
			parts = append(parts, fmt.Sprint(levels[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
