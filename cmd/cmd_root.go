// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}
}

var (
	dbPath    string
	cachePath string
)

var rootCmd = &cobra.Command{
	Use:   "locintel",
	Short: "personal location intelligence",
	Long: `
locintel stores a personal GPS history in a local warehouse, derives places,
visits and movements from it, and enriches places with names and addresses
through cost-optimized reverse geocoding.
`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/locintel.duckdb", "path to the warehouse database")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "data/enrichment_cache.json", "path to the enrichment cache file")
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
