package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/entanglab/dqc/internal/runtime"
	"github.com/entanglab/dqc/internal/schedule"
	"github.com/entanglab/dqc/internal/store"
	"github.com/entanglab/dqc/internal/ui"
)

func printDocument(doc *schedule.Document) {
	if doc.Name != "" {
		fmt.Printf("Name:    %s\n", doc.Name)
	}
	fmt.Printf("Scheme:  %s\n", doc.Scheme)
	fmt.Printf("Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	for _, node := range doc.Schedules.Nodes() {
		label := ui.RenderNode(node)
		if size, ok := doc.NodeSizes[node]; ok {
			label = fmt.Sprintf("%s %s", label, ui.RenderMuted(fmt.Sprintf("(%d qubits)", size)))
		}
		fmt.Println(label)
		for i, slice := range doc.Schedules[node] {
			fmt.Printf("  %2d  %s\n", i, renderSlice(slice))
		}
		fmt.Println()
	}
}

func renderSlice(s schedule.TimeSlice) string {
	parts := make([]string, len(s))
	for i, p := range s {
		if p.IsComm() {
			parts[i] = ui.RenderComm(p.String())
		} else {
			parts[i] = p.String()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func printReport(run *store.Run, report *runtime.Report) {
	if jsonOutput {
		out := struct {
			Run    *store.Run      `json:"run"`
			Report *runtime.Report `json:"report"`
		}{run, report}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Run:     %s\n", run.ID)
	fmt.Printf("Status:  %s\n", run.Status)
	fmt.Printf("Elapsed: %s\n", report.Elapsed)
	fmt.Println()

	nodes := make([]string, 0, len(report.Outcomes))
	for node := range report.Outcomes {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tKEY\tOUTCOME")
	for _, node := range nodes {
		outcomes := report.Outcomes[node]
		keys := make([]string, 0, len(outcomes))
		for key := range outcomes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		if len(keys) == 0 {
			fmt.Fprintf(w, "%s\t%s\t\n", ui.RenderNode(node), ui.RenderMuted("(no measurements)"))
			continue
		}
		for _, key := range keys {
			fmt.Fprintf(w, "%s\t%s\t%d\n", ui.RenderNode(node), key, outcomes[key])
		}
	}
	w.Flush()
}

func printRunsJSON(runs []*store.Run) {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printRunsTable(runs []*store.Run) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSCHEME\tNODES\tPRIMITIVES\tELAPSED\tCREATED")
	for _, r := range runs {
		status := string(r.Status)
		if r.Status == store.RunFailed {
			status = ui.RenderFailed(status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID,
			status,
			r.Scheme,
			r.Nodes,
			r.Primitives,
			r.Elapsed,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	fmt.Printf("\n%d runs\n", len(runs))
}
