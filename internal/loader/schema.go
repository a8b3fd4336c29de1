package loader

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/padron"
)

// TableName is the destination table for the padrón load.
const TableName = "contribuyentes"

const createTableSQL = `
CREATE TABLE contribuyentes (
	ruc                  TEXT PRIMARY KEY,
	nombre_razon_social  TEXT,
	estado_contribuyente TEXT,
	condicion_domicilio  TEXT,
	ubigeo               TEXT,
	tipo_via             TEXT,
	nombre_via           TEXT,
	codigo_zona          TEXT,
	tipo_zona            TEXT,
	numero               TEXT,
	interior             TEXT,
	lote                 TEXT,
	departamento         TEXT,
	manzana              TEXT,
	kilometro            TEXT
)`

// SecondaryIndexes are built after the bulk load commits, never during it.
var SecondaryIndexes = []struct {
	Name   string
	Column string
}{
	{"idx_estado", "estado_contribuyente"},
	{"idx_ubigeo", "ubigeo"},
	{"idx_nombre", "nombre_razon_social"},
	{"idx_condicion", "condicion_domicilio"},
}

// recreateTable drops and recreates the destination table. Every run starts
// from an empty table; there is no incremental mode.
func recreateTable(db *sql.DB) error {
	if _, err := db.Exec("DROP TABLE IF EXISTS " + TableName); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// BuildIndexes creates the secondary indexes sequentially. Each index is
// independent: a failure is logged and the rest are still attempted.
func BuildIndexes(db *sql.DB) int {
	built := 0
	for _, idx := range SecondaryIndexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.Name, TableName, idx.Column)
		if _, err := db.Exec(stmt); err != nil {
			log.Printf("[index] %s on %s failed: %v", idx.Name, idx.Column, err)
			continue
		}
		log.Printf("[index] %s on %s OK", idx.Name, idx.Column)
		built++
	}
	return built
}

// insertSQL builds the multi-row INSERT OR REPLACE statement for n records.
func insertSQL(n int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", padron.FieldCount), ",") + ")"
	var b strings.Builder
	b.WriteString("INSERT OR REPLACE INTO ")
	b.WriteString(TableName)
	b.WriteString(" (")
	b.WriteString(strings.Join(padron.Columns, ", "))
	b.WriteString(") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(row)
	}
	return b.String()
}
