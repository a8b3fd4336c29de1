// padron-load — Load the SUNAT padrón reducido extract into SQLite
//
// Streams the multi-GB pipe-delimited taxpayer extract (plain or .gz),
// auto-detects its encoding, and bulk-inserts into the contribuyentes table
// in a single transaction with INSERT OR REPLACE batches. Secondary indexes
// are built after the load commits, followed by VACUUM/ANALYZE and a
// verification pass.
//
// An interrupted run rolls back the load transaction and leaves the
// destination file incomplete; discard it and rerun. There is no resume.
//
// Build: go build -ldflags="-s -w" -o build/padron-load ./cmd/padron-load

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/loader"
)

var Version = "dev"

func main() {
	src := flag.String("src", "", "Padrón extract file (.txt or .txt.gz, required)")
	dbPath := flag.String("db", "contribuyentes.db", "Destination SQLite database")
	batch := flag.Int("batch", 0, "Rows per INSERT batch (0 = pick from available memory)")
	estLines := flag.Int64("est-lines", loader.EstimatedTotalLines, "Estimated total lines (ETA display only)")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padron-load v%s — Load the SUNAT padrón extract into SQLite\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Drops and rebuilds the contribuyentes table from --src, then builds\n")
		fmt.Fprintf(os.Stderr, "indexes and runs VACUUM/ANALYZE. Expect multiple hours for a full padrón.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  padron-load --src padron_reducido_ruc.txt\n")
		fmt.Fprintf(os.Stderr, "  padron-load --src padron.txt.gz --db /data/contribuyentes.db --yes\n")
	}

	flag.Parse()

	if *src == "" {
		flag.Usage()
		os.Exit(2)
	}
	if _, err := os.Stat(*src); err != nil {
		log.Fatalf("Source file: %v", err)
	}

	log.Println("=========================================================")
	log.Printf("Padrón Load v%s", Version)
	log.Println("=========================================================")
	log.Printf("Source:   %s", *src)
	log.Printf("Target:   %s (table contribuyentes)", *dbPath)
	log.Printf("CPUs:     %d", runtime.NumCPU())

	if !*yes && !confirm() {
		log.Println("Cancelled, nothing was modified.")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Interrupt received, rolling back...")
		cancel()
	}()

	res, err := loader.Run(ctx, loader.Config{
		SourcePath:          *src,
		DBPath:              *dbPath,
		BatchSize:           *batch,
		EstimatedTotalLines: *estLines,
	})
	if err != nil {
		log.Printf("Load failed: %v", err)
		log.Printf("Destination %s is incomplete; delete it before retrying.", *dbPath)
		os.Exit(1)
	}

	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Lines Read:     %d", res.LinesRead)
	log.Printf("Rows Inserted:  %d", res.Inserted)
	log.Printf("Parse Errors:   %d", res.ParseErrors)
	log.Printf("Failed Rows:    %d", res.FailedRows)
	log.Printf("Success Rate:   %.1f%%", res.SuccessRate())
	log.Printf("Table Rows:     %d", res.TableRows)
	log.Printf("Encoding:       %s", res.Encoding)
	log.Printf("Batch Size:     %d", res.BatchSize)
	log.Printf("Elapsed:        %v", res.Elapsed.Round(time.Second))
	if res.Elapsed.Seconds() > 0 {
		log.Printf("Throughput:     %.0f lines/s", float64(res.LinesRead)/res.Elapsed.Seconds())
	}
	log.Println("=========================================================")
}

// confirm asks the operator before starting the multi-hour run. Only the
// token "yes" proceeds; anything else cancels with no side effects.
func confirm() bool {
	fmt.Print("This drops and rebuilds the contribuyentes table. Type 'yes' to continue: ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(answer) == "yes"
}
