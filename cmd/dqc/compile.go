package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/circuit"
	"github.com/entanglab/dqc/internal/compile"
	"github.com/entanglab/dqc/internal/config"
	"github.com/entanglab/dqc/internal/export"
	"github.com/entanglab/dqc/internal/partition"
	"github.com/entanglab/dqc/internal/qasm"
	"github.com/entanglab/dqc/internal/schedule"
)

var (
	compileScheme      string
	compilePartitioner string
	compileName        string
	compileOut         string
)

var compileCmd = &cobra.Command{
	Use:   "compile <circuit.qasm>",
	Short: "Compile a monolithic circuit into per-node schedules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, _, err := compileFromFile(args[0], compileScheme, compilePartitioner, compileName)
		if err != nil {
			return err
		}

		if compileOut != "" {
			f, err := os.Create(compileOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", compileOut, err)
			}
			defer f.Close()
			return export.WriteDocument(doc, f)
		}
		if jsonOutput {
			return export.WriteDocument(doc, os.Stdout)
		}
		printDocument(doc)
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVar(&compileScheme, "scheme", "", "remote-gate scheme (cat, tp_risky, tp_safe; default from fleet file)")
	compileCmd.Flags().StringVar(&compilePartitioner, "partitioner", "fcfs", "allocation strategy (fcfs, bisect)")
	compileCmd.Flags().StringVar(&compileName, "name", "", "schedule name (default circuit file stem)")
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "write the schedule document to a file")
}

// compileFromFile runs the full front half of the pipeline: parse, allocate,
// rewrite, compile.
func compileFromFile(path, schemeFlag, partitioner, name string) (*schedule.Document, *config.Fleet, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := qasm.Parse(string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	fleet, err := config.LoadFleet(cfg.FleetFile)
	if err != nil {
		return nil, nil, err
	}

	token := schemeFlag
	if token == "" {
		token = fleet.Scheme
	}
	if token == "" {
		token = string(circuit.SchemeCat)
	}
	scheme, err := circuit.ParseScheme(token)
	if err != nil {
		return nil, nil, err
	}

	var plan *partition.Plan
	switch partitioner {
	case "fcfs":
		specs := make([]partition.NodeSpec, len(fleet.Nodes))
		for i, n := range fleet.Nodes {
			specs[i] = partition.NodeSpec{Name: n.Name, CommQubits: n.CommQubits}
		}
		plan, err = partition.FirstComeFirstServed(c, specs)
	case "bisect":
		if len(fleet.Nodes) != 2 {
			return nil, nil, fmt.Errorf("bisect partitioning needs exactly 2 nodes, fleet has %d", len(fleet.Nodes))
		}
		plan, err = partition.Bisect(c, fleet.Nodes[0].CommQubits)
	default:
		return nil, nil, fmt.Errorf("unknown partitioner %q", partitioner)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := partition.Rewrite(c, plan, scheme); err != nil {
		return nil, nil, err
	}
	set, err := compile.Compile(c)
	if err != nil {
		return nil, nil, err
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc := &schedule.Document{
		Version:   schedule.DocumentVersion,
		Name:      name,
		Scheme:    string(scheme),
		CreatedAt: time.Now().UTC(),
		NodeSizes: c.NodeSizes,
		Schedules: set,
	}
	return doc, fleet, nil
}
