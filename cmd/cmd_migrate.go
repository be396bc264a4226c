// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/myndy/locintel/migrate"
	"github.com/myndy/locintel/utils"
)

var (
	migrateDryRun    bool
	migrateBatchSize int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <source> <target>",
	Short: "Copy a warehouse database into another",
	Long: `
migrate copies every warehouse table from the source database into the
target, creating the target schema if needed, and verifies row counts on
both sides. With --dry-run only the counts are reported.
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := sql.Open("duckdb", args[0])
		if err != nil {
			return fmt.Errorf("opening source: %w", err)
		}
		defer source.Close()

		target, targetRepos, err := openWarehouse(args[1])
		if err != nil {
			return fmt.Errorf("opening target: %w", err)
		}
		defer target.Close()

		_ = targetRepos // schema creation is the side effect we need

		migrator := migrate.New(source, target, migrateBatchSize)

		if migrateDryRun {
			report, err := migrator.Counts()
			if err != nil {
				return err
			}

			fmt.Println("🔍 Dry run, nothing copied:")
			printCounts(report)

			return nil
		}

		report, err := migrator.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("✅ Copied %s rows\n", utils.FormatInt(report.Copied))
		printCounts(report)

		return nil
	},
}

func printCounts(report *migrate.Report) {
	for _, tc := range report.Tables {
		marker := "  "
		if tc.Source != tc.Target {
			marker = "⚠️"
		}

		fmt.Printf("%s %-14s source %12s | target %12s\n",
			marker, tc.Table, utils.FormatInt(tc.Source), utils.FormatInt(tc.Target))
	}
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "report row counts without copying")
	migrateCmd.Flags().IntVar(&migrateBatchSize, "batch-size", migrate.DefaultBatchSize, "rows per transaction")

	rootCmd.AddCommand(migrateCmd)
}
