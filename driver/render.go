package driver

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dagtalk/dagtalk"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

var (
	successColor = color.New(color.FgGreen)
	failedColor  = color.New(color.FgRed)
	activeColor  = color.New(color.FgCyan)
	pausedColor  = color.New(color.FgYellow)
	mutedColor   = color.New(color.FgHiBlack)
)

// Render formats a report as terminal text. Width bounds the DAG table
// layout; a non-positive width falls back to 100 columns. Colors degrade
// to plain text through fatih/color's NO_COLOR handling.
func Render(report dagtalk.Report, width int) string {
	if width <= 0 {
		width = 100
	}
	var b strings.Builder
	switch report.Intent.(type) {
	case dagtalk.ListDagsIntent:
		renderDags(&b, report, width)
	case dagtalk.TriggerDagIntent, dagtalk.RunStatusIntent:
		if report.Run != nil {
			renderRun(&b, report)
		}
	case dagtalk.DagStatusIntent:
		if report.Status != nil {
			renderStatus(&b, report.Status)
		}
	}
	if report.Advice != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(report.Advice)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDags(b *strings.Builder, report dagtalk.Report, width int) {
	dags := report.Dags
	if len(dags) == 0 {
		if in, ok := report.Intent.(dagtalk.ListDagsIntent); ok && in.Pattern != "" {
			fmt.Fprintf(b, "No DAGs match %s.\n", in.Pattern)
			return
		}
		b.WriteString("No DAGs found.\n")
		return
	}

	idW, nameW := 0, 0
	for _, d := range dags {
		if w := displayWidth(string(d.ID)); w > idW {
			idW = w
		}
		if w := displayWidth(d.DisplayName); w > nameW {
			nameW = w
		}
	}
	// The ID column never truncates: the ID is what the next instruction
	// needs verbatim. The name column absorbs the squeeze.
	maxName := width - idW - len("paused") - 4
	if maxName < 8 {
		maxName = 8
	}
	if nameW > maxName {
		nameW = maxName
	}

	for _, d := range dags {
		b.WriteString(pad(string(d.ID), idW))
		b.WriteString("  ")
		b.WriteString(pad(truncate(d.DisplayName, nameW), nameW))
		b.WriteString("  ")
		if d.Paused {
			b.WriteString(pausedColor.Sprint("paused"))
		} else {
			b.WriteString(successColor.Sprint("active"))
		}
		b.WriteString("\n")
	}
	if len(dags) == 1 {
		b.WriteString(mutedColor.Sprint("1 DAG") + "\n")
	} else {
		b.WriteString(mutedColor.Sprintf("%d DAGs", len(dags)) + "\n")
	}
}

func renderRun(b *strings.Builder, report dagtalk.Report) {
	run := report.Run
	if _, ok := report.Intent.(dagtalk.TriggerDagIntent); ok {
		if run.State == dagtalk.RunUnknown && run.RawState == "" {
			fmt.Fprintf(b, "Trigger outcome unknown for %s.\n", run.DagID)
		} else {
			fmt.Fprintf(b, "Triggered %s.\n", run.DagID)
		}
	} else {
		fmt.Fprintf(b, "Run of %s.\n", run.DagID)
	}
	fmt.Fprintf(b, "  %-8s%s\n", "run:", run.RunID)
	fmt.Fprintf(b, "  %-8s%s\n", "state:", renderState(run.State, run.RawState))
	if !run.LogicalDate.IsZero() {
		fmt.Fprintf(b, "  %-8s%s\n", "date:", run.LogicalDate.Format(time.RFC3339))
	}
	if len(run.Conf) > 0 {
		fmt.Fprintf(b, "  %-8s%s\n", "conf:", renderConf(run.Conf))
	}
}

func renderStatus(b *strings.Builder, st *dagtalk.DagStatus) {
	b.WriteString(string(st.ID))
	if st.DisplayName != "" && st.DisplayName != string(st.ID) {
		b.WriteString(" (" + st.DisplayName + ")")
	}
	if st.Paused {
		b.WriteString(" " + pausedColor.Sprint("[paused]"))
	}
	b.WriteString("\n")

	if st.LastRunID == "" {
		fmt.Fprintf(b, "  %-15s%s\n", "last run:", mutedColor.Sprint("no runs yet"))
	} else {
		fmt.Fprintf(b, "  %-15s%s\n", "last run:", st.LastRunID)
		fmt.Fprintf(b, "  %-15s%s\n", "state:", renderState(st.LastRunState, st.LastRunRawState))
	}
	fmt.Fprintf(b, "  %-15s%d\n", "total runs:", st.TotalRuns)
	if !st.NextDataIntervalStart.IsZero() {
		fmt.Fprintf(b, "  %-15s%s to %s\n", "next interval:",
			st.NextDataIntervalStart.Format(time.RFC3339),
			st.NextDataIntervalEnd.Format(time.RFC3339))
	}
}

// renderState colors the parsed state and keeps the raw orchestrator value
// visible when parsing lost information.
func renderState(state dagtalk.RunState, raw string) string {
	out := stateColor(state).Sprint(string(state))
	if raw != "" && raw != string(state) {
		out += " " + mutedColor.Sprint("("+raw+")")
	}
	return out
}

func stateColor(state dagtalk.RunState) *color.Color {
	switch state {
	case dagtalk.RunSuccess:
		return successColor
	case dagtalk.RunFailed:
		return failedColor
	case dagtalk.RunQueued, dagtalk.RunRunning:
		return activeColor
	default:
		return mutedColor
	}
}

func renderConf(conf map[string]string) string {
	keys := make([]string, 0, len(conf))
	for k := range conf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + conf[k]
	}
	return strings.Join(parts, " ")
}

func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

func pad(s string, w int) string {
	if d := w - displayWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

// truncate shortens s to max display columns, cutting on grapheme cluster
// boundaries so wide characters and combining sequences never split.
func truncate(s string, max int) string {
	if displayWidth(s) <= max {
		return s
	}
	var b strings.Builder
	w := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		cw := runewidth.StringWidth(cluster)
		if w+cw > max-1 {
			break
		}
		b.WriteString(cluster)
		w += cw
	}
	return b.String() + "…"
}
