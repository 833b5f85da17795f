package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mesh-intelligence/almanac/internal/agenda"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printRecords prints one kind's records as a table.
func printRecords(w io.Writer, kind string, records []any) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No %s found.\n", strings.ReplaceAll(kind, "_", " "))
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tDETAIL")
	for _, r := range records {
		meta, name, detail := describe(r)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", meta.SortOrder, meta.ID, truncate(name, 40), detail)
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "Total: %d\n", len(records))
}

func describe(r any) (types.Meta, string, string) {
	switch v := r.(type) {
	case types.Item:
		detail := v.Start.Format(time.DateOnly) + " " + describePattern(v.Recurrence)
		if v.Completed {
			detail += " done"
		}
		return v.Meta, v.Title, detail
	case types.Category:
		return v.Meta, v.Name, v.Color
	case types.Habit:
		return v.Meta, v.Name, v.Start.Format(time.DateOnly) + " " + describePattern(v.Recurrence)
	case types.HabitCompletion:
		return v.Meta, v.HabitID, v.Day.Format(time.DateOnly) + " x" + strconv.Itoa(v.Count)
	case types.RoutineTemplate:
		return v.Meta, v.Name, fmt.Sprintf("%d steps, %s %s", len(v.Steps), v.Start.Format(time.DateOnly), describePattern(v.Recurrence))
	case types.RoutineProgress:
		steps := make([]string, len(v.CompletedSteps))
		for i, s := range v.CompletedSteps {
			steps[i] = strconv.Itoa(s)
		}
		return v.Meta, v.TemplateID, v.Day.Format(time.DateOnly) + " steps " + strings.Join(steps, ",")
	}
	return types.Meta{}, fmt.Sprint(r), ""
}

// describePattern renders a pattern as "once", "every 2 weeks until
// 2026-03-01" and so on.
func describePattern(p types.RecurrencePattern) string {
	if !p.IsRecurring() {
		return "once"
	}
	unit := map[types.Frequency]string{
		types.FrequencyDaily:   "day",
		types.FrequencyWeekly:  "week",
		types.FrequencyMonthly: "month",
		types.FrequencyYearly:  "year",
	}[p.Frequency]
	s := "every " + unit
	if p.Interval > 1 {
		s = fmt.Sprintf("every %d %ss", p.Interval, unit)
	}
	switch end := p.End.(type) {
	case types.EndDate:
		s += " until " + end.Date.Format(time.DateOnly)
	case types.MaxOccurrences:
		s += fmt.Sprintf(" for %d", end.Count)
	}
	return s
}

var singular = map[string]string{
	types.KindItems:    "item",
	types.KindHabits:   "habit",
	types.KindRoutines: "routine",
}

// printAgenda prints entries grouped under one header per day.
func printAgenda(w io.Writer, entries []agenda.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Nothing scheduled.")
		return
	}
	for i, day := range agenda.GroupByDay(entries) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, day[0].Day.Format("2006-01-02 Mon"))
		for _, e := range day {
			kind := singular[e.Kind]
			if kind == "" {
				kind = e.Kind
			}
			fmt.Fprintf(w, "  %-8s %s\n", kind, e.Label)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
