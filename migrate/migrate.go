// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

// Package migrate copies a location warehouse from one database to another,
// table by table, and verifies the result.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 5000

// Tables lists the warehouse tables in copy order.
var Tables = []string{"location_data", "places", "visits", "movements", "checkins"}

// TableCount holds per-table row counts on both sides.
type TableCount struct {
	Table  string `json:"table"`
	Source int64  `json:"source"`
	Target int64  `json:"target"`
}

// Report summarizes a migration or a dry run.
type Report struct {
	Tables []TableCount `json:"tables"`
	Copied int64        `json:"copied"`
}

// Mismatches returns the tables whose source and target counts differ.
func (r *Report) Mismatches() []TableCount {
	var out []TableCount

	for _, tc := range r.Tables {
		if tc.Source != tc.Target {
			out = append(out, tc)
		}
	}

	return out
}

// Migrator copies warehouse tables between two open databases. The target
// schema must already exist.
type Migrator struct {
	source    *sql.DB
	target    *sql.DB
	batchSize int
}

func New(source, target *sql.DB, batchSize int) *Migrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Migrator{source: source, target: target, batchSize: batchSize}
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int

	err := db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?
	`, table).Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func countRows(db *sql.DB, table string) (int64, error) {
	exists, err := tableExists(db, table)
	if err != nil {
		return 0, err
	}

	if !exists {
		return 0, nil
	}

	var count int64

	err = db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count)

	return count, err
}

// Counts reports row counts on both sides without copying anything.
func (m *Migrator) Counts() (*Report, error) {
	report := &Report{}

	for _, table := range Tables {
		src, err := countRows(m.source, table)
		if err != nil {
			return nil, fmt.Errorf("counting %s in source: %w", table, err)
		}

		dst, err := countRows(m.target, table)
		if err != nil {
			return nil, fmt.Errorf("counting %s in target: %w", table, err)
		}

		report.Tables = append(report.Tables, TableCount{Table: table, Source: src, Target: dst})
	}

	return report, nil
}

// Run copies every table and returns the verified counts.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	for _, table := range Tables {
		exists, err := tableExists(m.source, table)
		if err != nil {
			return nil, err
		}

		if !exists {
			report.Tables = append(report.Tables, TableCount{Table: table})

			continue
		}

		copied, err := m.copyTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("copying %s: %w", table, err)
		}

		report.Copied += copied

		src, err := countRows(m.source, table)
		if err != nil {
			return nil, err
		}

		dst, err := countRows(m.target, table)
		if err != nil {
			return nil, err
		}

		report.Tables = append(report.Tables, TableCount{Table: table, Source: src, Target: dst})
	}

	if mismatches := report.Mismatches(); len(mismatches) > 0 {
		return report, fmt.Errorf("verification failed for %d tables", len(mismatches))
	}

	return report, nil
}

func (m *Migrator) copyTable(ctx context.Context, table string) (int64, error) {
	total, err := countRows(m.source, table)
	if err != nil {
		return 0, err
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(int(total),
			progressbar.OptionSetDescription("Copying "+table),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	rows, err := m.source.QueryContext(ctx, `SELECT * FROM `+table)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := `INSERT OR REPLACE INTO ` + table +
		` (` + strings.Join(cols, ", ") + `) VALUES (` + placeholders + `)`

	var (
		copied  int64
		pending int64
		tx      *sql.Tx
		stmt    *sql.Stmt
	)

	begin := func() error {
		tx, err = m.target.Begin()
		if err != nil {
			return err
		}

		stmt, err = tx.Prepare(insert)

		return err
	}

	if err := begin(); err != nil {
		return 0, err
	}

	values := make([]any, len(cols))
	scanDst := make([]any, len(cols))

	for i := range values {
		scanDst[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanDst...); err != nil {
			_ = tx.Rollback()

			return copied, err
		}

		if _, err := stmt.Exec(values...); err != nil {
			_ = tx.Rollback()

			return copied, err
		}

		copied++
		pending++

		if bar != nil {
			_ = bar.Add(1)
		}

		if pending >= int64(m.batchSize) {
			_ = stmt.Close()

			if err := tx.Commit(); err != nil {
				return copied, err
			}

			pending = 0

			if err := begin(); err != nil {
				return copied, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		_ = tx.Rollback()

		return copied, err
	}

	_ = stmt.Close()

	return copied, tx.Commit()
}
