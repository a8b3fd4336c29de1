// Package loader implements the padrón bulk load: streaming parse of the
// pipe-delimited extract into the contribuyentes table inside a single
// transaction, followed by index build, optimize, and verification passes.
package loader

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/encdetect"
	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/padron"
	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/sysmem"
)

// Config holds one ingestion run's parameters.
type Config struct {
	// SourcePath is the padrón extract (.txt or .txt.gz).
	SourcePath string

	// DBPath is the destination SQLite database file.
	DBPath string

	// BatchSize is rows per INSERT batch. Zero means pick from available
	// memory (sysmem.PickBatchSize).
	BatchSize int

	// EstimatedTotalLines feeds the ETA display only. Zero means the
	// current padrón size class (EstimatedTotalLines constant).
	EstimatedTotalLines int64
}

// Result summarizes a completed run.
type Result struct {
	LinesRead   int64
	Inserted    int64
	ParseErrors int64
	FailedRows  int64
	Encoding    string
	BatchSize   int
	TableRows   int64
	Elapsed     time.Duration
}

// SuccessRate is inserted rows over data lines read, as a percentage.
func (r *Result) SuccessRate() float64 {
	if r.LinesRead == 0 {
		return 0
	}
	return float64(r.Inserted) / float64(r.LinesRead) * 100
}

// Run executes the full pipeline: encoding detection, memory pre-flight,
// streaming parse, transactional batch load, then index build and
// optimize/verify. On any fatal error (I/O failure, cancellation) the load
// transaction is rolled back in full and the destination is reported
// incomplete; the file is left for the operator to delete.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()

	enc := encdetect.DetectFile(cfg.SourcePath, padron.Delimiter)
	log.Printf("Encoding: %s", enc.Name)

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		var avail uint64
		batchSize, avail = sysmem.PickBatchSize()
		log.Printf("Memory:   %.1f GB available / %.1f GB total",
			sysmem.GB(avail), sysmem.GB(sysmem.Total()))
		if batchSize == sysmem.ReducedBatchSize {
			log.Printf("Memory:   low-memory mode, batch size reduced to %d", batchSize)
		}
	}
	log.Printf("Batch:    %d rows", batchSize)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Bulk-load pragmas. Durability is pointless here: an interrupted run is
	// discarded and restarted, never resumed.
	for _, pragma := range []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := recreateTable(db); err != nil {
		return nil, err
	}

	res := &Result{Encoding: enc.Name, BatchSize: batchSize}
	if err := ingest(ctx, db, cfg, enc, batchSize, res); err != nil {
		return nil, err
	}

	// Post-load passes run outside the transaction. Their failures are
	// logged and skipped; committed data is never rolled back here.
	log.Printf("Building secondary indexes...")
	BuildIndexes(db)
	Optimize(db)
	res.TableRows = Verify(db)

	res.Elapsed = time.Since(start)
	return res, nil
}

// ingest streams the source file through the parser and loads batches inside
// one transaction.
func ingest(ctx context.Context, db *sql.DB, cfg Config, enc encdetect.Encoding, batchSize int, res *Result) error {
	src, closeSrc, err := encdetect.OpenDecoded(cfg.SourcePath, enc)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer closeSrc()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	scanner := bufio.NewScanner(src)
	// Merged-name rows can get long.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Header line is discarded, not validated.
	if scanner.Scan() {
		_ = scanner.Text()
	}

	progress := NewProgress(cfg.EstimatedTotalLines)
	batch := make([]*padron.Contribuyente, 0, batchSize)
	var batches int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, failed := flushBatch(tx, batch)
		res.Inserted += inserted
		res.FailedRows += failed
		batch = batch[:0]
		batches++

		if batches%sysmem.GCHintInterval == 0 {
			sysmem.GCHint()
		}
		if progress.Due(batches, res.LinesRead) {
			progress.Report(res.LinesRead, res.Inserted, res.ParseErrors)
		}
		return ctx.Err()
	}

	for scanner.Scan() {
		line := scanner.Text()
		res.LinesRead++

		rec, ok := padron.ParseLine(line)
		if !ok {
			// Every data line that yields no record counts as a parse error,
			// blank lines included, so the final summary reconciles:
			// table rows = lines read - parse errors - failed rows.
			res.ParseErrors++
			continue
		}
		batch = append(batch, rec)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("load cancelled, transaction rolled back: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	if err := flush(); err != nil {
		return fmt.Errorf("load cancelled, transaction rolled back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// flushBatch loads one batch with a single multi-row INSERT OR REPLACE.
// If the statement fails for any reason, it degrades to row-by-row inserts,
// skipping and counting rows that still fail. The batch is never retained.
func flushBatch(tx *sql.Tx, batch []*padron.Contribuyente) (inserted, failed int64) {
	args := make([]any, 0, len(batch)*padron.FieldCount)
	for _, rec := range batch {
		args = append(args, rec.Values()...)
	}

	_, err := tx.Exec(insertSQL(len(batch)), args...)
	if err == nil {
		return int64(len(batch)), 0
	}
	log.Printf("[batch] multi-row insert failed (%v), retrying row by row", err)

	stmt, err := tx.Prepare(insertSQL(1))
	if err != nil {
		log.Printf("[batch] prepare fallback failed: %v, %d rows lost", err, len(batch))
		return 0, int64(len(batch))
	}
	defer stmt.Close()

	for _, rec := range batch {
		if _, err := stmt.Exec(rec.Values()...); err != nil {
			log.Printf("[row] ruc=%s failed: %v", rec.RUC, err)
			failed++
			continue
		}
		inserted++
	}
	log.Printf("[batch] fallback inserted %d/%d rows", inserted, len(batch))
	return inserted, failed
}
