package loader

import (
	"database/sql"
	"fmt"
	"log"
)

// SampleRows is how many rows the verification pass prints for manual
// inspection.
const SampleRows = 5

// Optimize reclaims space and refreshes the query planner statistics after
// the load commits. Failures are logged and skipped; the committed data is
// untouched either way.
func Optimize(db *sql.DB) {
	log.Printf("Optimizing database (VACUUM)...")
	if _, err := db.Exec("VACUUM"); err != nil {
		log.Printf("[optimize] VACUUM failed: %v", err)
	}
	log.Printf("Refreshing planner statistics (ANALYZE)...")
	if _, err := db.Exec("ANALYZE"); err != nil {
		log.Printf("[optimize] ANALYZE failed: %v", err)
	}
}

// Verify runs the read-only sanity pass: total row count, a per-estado
// breakdown, and a small row sample. It is diagnostic only; it never rolls
// back or repairs data. Returns the total row count (0 on query failure).
func Verify(db *sql.DB) int64 {
	var total int64
	if err := db.QueryRow("SELECT COUNT(*) FROM " + TableName).Scan(&total); err != nil {
		log.Printf("[verify] count failed: %v", err)
		return 0
	}
	log.Printf("[verify] total rows: %d", total)

	rows, err := db.Query(
		"SELECT COALESCE(estado_contribuyente, 'NULL'), COUNT(*) FROM " + TableName +
			" GROUP BY estado_contribuyente ORDER BY COUNT(*) DESC")
	if err != nil {
		log.Printf("[verify] estado breakdown failed: %v", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var estado string
			var n int64
			if err := rows.Scan(&estado, &n); err != nil {
				log.Printf("[verify] estado scan failed: %v", err)
				break
			}
			log.Printf("[verify]   %-12s %d", estado, n)
		}
		if err := rows.Err(); err != nil {
			log.Printf("[verify] estado breakdown failed: %v", err)
		}
	}

	sample, err := db.Query(
		fmt.Sprintf("SELECT ruc, COALESCE(nombre_razon_social, ''), COALESCE(estado_contribuyente, '') FROM %s LIMIT %d",
			TableName, SampleRows))
	if err != nil {
		log.Printf("[verify] sample failed: %v", err)
		return total
	}
	defer sample.Close()
	for sample.Next() {
		var ruc, nombre, estado string
		if err := sample.Scan(&ruc, &nombre, &estado); err != nil {
			log.Printf("[verify] sample scan failed: %v", err)
			break
		}
		log.Printf("[verify]   sample: %s | %s | %s", ruc, nombre, estado)
	}
	if err := sample.Err(); err != nil {
		log.Printf("[verify] sample failed: %v", err)
	}
	return total
}
