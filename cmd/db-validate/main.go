// db-validate — Validate a loaded contribuyentes database
//
// Checks that the contribuyentes table exists, meets a minimum row count,
// and carries the four secondary indexes the query layer depends on. Run it
// after padron-load to confirm the destination is queryable.
//
// Build: go build -ldflags="-s -w" -o build/db-validate ./cmd/db-validate

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/loader"
)

var Version = "dev"

func main() {
	dbPath := flag.String("db", "contribuyentes.db", "SQLite database produced by padron-load")
	minRows := flag.Uint64("min-rows", 1_000_000, "Expected minimum row count (0 = just check existence)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "db-validate v%s — Validate the padrón database\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  db-validate --db contribuyentes.db\n")
		fmt.Fprintf(os.Stderr, "  db-validate --db /data/contribuyentes.db --min-rows 10000000\n")
	}

	flag.Parse()

	log.Printf("=========================================================")
	log.Printf("db-validate v%s", Version)
	log.Printf("=========================================================")
	log.Printf("Database: %s", *dbPath)

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Database file: %v", err)
	}

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	start := time.Now()
	passed := 0
	warned := 0
	failed := 0

	// Table existence + row count
	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", loader.TableName,
	).Scan(&name)
	if err != nil {
		log.Printf("  FAIL  table %-18s missing: %v", loader.TableName, err)
		failed++
	} else {
		var count uint64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + loader.TableName).Scan(&count); err != nil {
			log.Printf("  FAIL  table %-18s count error: %v", loader.TableName, err)
			failed++
		} else if *minRows > 0 && count < *minRows {
			log.Printf("  WARN  table %-18s %s rows (expected >= %s)",
				loader.TableName, fmtNum(count), fmtNum(*minRows))
			warned++
		} else if count == 0 {
			log.Printf("  ----  table %-18s empty", loader.TableName)
			warned++
		} else {
			log.Printf("  OK    table %-18s %s rows", loader.TableName, fmtNum(count))
			passed++
		}
	}

	// Secondary indexes
	for _, idx := range loader.SecondaryIndexes {
		var idxName string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx.Name,
		).Scan(&idxName)
		if err != nil {
			log.Printf("  FAIL  index %-18s missing (column %s)", idx.Name, idx.Column)
			failed++
			continue
		}
		log.Printf("  OK    index %-18s on %s", idx.Name, idx.Column)
		passed++
	}

	elapsed := time.Since(start)
	log.Println()
	log.Printf("=========================================================")
	log.Printf("Results: %d passed, %d warnings, %d failed  (%v)", passed, warned, failed, elapsed.Round(time.Millisecond))
	log.Printf("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}

func fmtNum(n uint64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2fB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
