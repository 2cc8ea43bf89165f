package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/schedule"
)

var showCmd = &cobra.Command{
	Use:   "show <schedule.json>",
	Short: "Display a compiled schedule document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var doc schedule.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		if doc.Version != schedule.DocumentVersion {
			return fmt.Errorf("unsupported schedule document version %q", doc.Version)
		}
		if jsonOutput {
			fmt.Println(string(data))
			return nil
		}
		printDocument(&doc)
		return nil
	},
}
