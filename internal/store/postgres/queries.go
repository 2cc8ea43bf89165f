package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/entanglab/dqc/internal/store"
)

// runColumns is the column list used for SELECT statements on the runs table.
const runColumns = `id, name, scheme, status, nodes, primitives, document,
	elapsed_ns, error, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateRun(ctx context.Context, db executor, r *store.Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (
			id, name, scheme, status, nodes, primitives, document,
			elapsed_ns, error, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11
		)`,
		r.ID,
		r.Name,
		r.Scheme,
		string(r.Status),
		r.Nodes,
		r.Primitives,
		nullBytes(r.Document),
		int64(r.Elapsed),
		r.Error,
		r.CreatedAt,
		r.UpdatedAt,
	)
	return err
}

func queryGetRun(ctx context.Context, db executor, id string) (*store.Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	return scanRun(row)
}

func queryListRuns(ctx context.Context, db executor, filter store.RunFilter) ([]*store.Run, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Scheme != "" {
		whereClauses = append(whereClauses, "scheme = "+nextArg())
		args = append(args, filter.Scheme)
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*store.Run
	for rows.Next() {
		r, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func queryUpdateRun(ctx context.Context, db executor, r *store.Run) error {
	res, err := db.ExecContext(ctx, `
		UPDATE runs SET
			name = $2, scheme = $3, status = $4, nodes = $5, primitives = $6,
			document = $7, elapsed_ns = $8, error = $9, updated_at = $10
		WHERE id = $1`,
		r.ID,
		r.Name,
		r.Scheme,
		string(r.Status),
		r.Nodes,
		r.Primitives,
		nullBytes(r.Document),
		int64(r.Elapsed),
		r.Error,
		r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryRecordEvent(ctx context.Context, db executor, e *store.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO run_events (run_id, node, kind, detail, at_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.RunID,
		e.Node,
		e.Kind,
		e.Detail,
		int64(e.At),
		e.CreatedAt,
	).Scan(&e.ID)
}

func queryGetEvents(ctx context.Context, db executor, runID string) ([]*store.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, node, kind, detail, at_ns, created_at
		FROM run_events WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*store.Event
	for rows.Next() {
		var (
			e    store.Event
			atNS int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Node, &e.Kind, &e.Detail, &atNS, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.At = time.Duration(atNS)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// scanner is the interface satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRunFrom(s scanner) (*store.Run, error) {
	var (
		r         store.Run
		status    string
		document  []byte
		elapsedNS int64
	)
	err := s.Scan(
		&r.ID, &r.Name, &r.Scheme, &status, &r.Nodes, &r.Primitives,
		&document, &elapsedNS, &r.Error, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = store.RunStatus(status)
	r.Document = document
	r.Elapsed = time.Duration(elapsedNS)
	return &r, nil
}

func scanRun(row *sql.Row) (*store.Run, error) { return scanRunFrom(row) }

func scanRunRows(rows *sql.Rows) (*store.Run, error) { return scanRunFrom(rows) }

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
