// Package export writes run-ledger contents and compiled schedules as
// JSONL, locally or to an S3-compatible bucket.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/entanglab/dqc/internal/schedule"
	"github.com/entanglab/dqc/internal/store"
)

// header is the first JSONL record written by ExportRuns.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	RunCount   int       `json:"run_count"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// runRecord embeds a run's events alongside the run itself.
type runRecord struct {
	*store.Run
	Events []*store.Event `json:"events,omitempty"`
}

// Summary counts what an export contained. It mirrors the header record so
// callers can report or tag the upload without re-parsing the stream.
type Summary struct {
	Runs   int
	Events int
}

// ExportRuns writes every run and its events from the store as JSONL to w.
// Runs are sorted by ID.
func ExportRuns(ctx context.Context, s store.Store, w io.Writer) (Summary, error) {
	runs, err := s.ListRuns(ctx, store.RunFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("list runs: %w", err)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ID < runs[j].ID
	})

	records := make([]runRecord, 0, len(runs))
	events := 0
	for _, r := range runs {
		evs, err := s.GetEvents(ctx, r.ID)
		if err != nil {
			return Summary{}, fmt.Errorf("get events for %s: %w", r.ID, err)
		}
		events += len(evs)
		records = append(records, runRecord{Run: r, Events: evs})
	}
	sum := Summary{Runs: len(runs), Events: events}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		RunCount:   sum.Runs,
		EventCount: sum.Events,
	}); err != nil {
		return Summary{}, fmt.Errorf("encode header: %w", err)
	}

	for _, r := range records {
		if err := enc.Encode(record{Type: "run", Data: r}); err != nil {
			return Summary{}, fmt.Errorf("encode run %s: %w", r.ID, err)
		}
	}

	return sum, nil
}

// WriteDocument writes one compiled schedule document as a single JSON
// object to w.
func WriteDocument(doc *schedule.Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode schedule document: %w", err)
	}
	return nil
}
