package loader

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = "H1|H2\n" +
	"111|ACME SA|ACTIVO|HABIDO|150101|AV|LIMA|Z1|T1|100|-|-|-|-|-\n" +
	"222|BETA SAC|BAJA|NO HABIDO|070100|JR|CALLAO|-|-|200|-|-|-|-|-\n"

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "padron.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runLoad(t *testing.T, src, dbPath string, batchSize int) *Result {
	t.Helper()
	res, err := Run(context.Background(), Config{
		SourcePath: src,
		DBPath:     dbPath,
		BatchSize:  batchSize,
	})
	require.NoError(t, err)
	return res
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM contribuyentes").Scan(&n))
	return n
}

func TestRunLoadsSampleFile(t *testing.T) {
	src := writeSource(t, sampleFile)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	res := runLoad(t, src, dbPath, 2)
	assert.Equal(t, int64(2), res.LinesRead)
	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, int64(0), res.ParseErrors)
	assert.Equal(t, int64(0), res.FailedRows)
	assert.Equal(t, int64(2), res.TableRows)
	assert.InDelta(t, 100.0, res.SuccessRate(), 0.001)

	db := openDB(t, dbPath)
	assert.Equal(t, int64(2), countRows(t, db))

	var nombre string
	var departamento, kilometro sql.NullString
	require.NoError(t, db.QueryRow(
		"SELECT nombre_razon_social, departamento, kilometro FROM contribuyentes WHERE ruc = '111'",
	).Scan(&nombre, &departamento, &kilometro))
	assert.Equal(t, "ACME SA", nombre)
	assert.False(t, departamento.Valid)
	assert.False(t, kilometro.Valid)

	require.NoError(t, db.QueryRow(
		"SELECT nombre_razon_social, departamento, kilometro FROM contribuyentes WHERE ruc = '222'",
	).Scan(&nombre, &departamento, &kilometro))
	assert.Equal(t, "BETA SAC", nombre)
	assert.False(t, departamento.Valid)
	assert.False(t, kilometro.Valid)
}

func TestRerunDoesNotDuplicate(t *testing.T) {
	src := writeSource(t, sampleFile)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	runLoad(t, src, dbPath, 2)
	runLoad(t, src, dbPath, 2)

	db := openDB(t, dbPath)
	assert.Equal(t, int64(2), countRows(t, db))

	var nombre string
	require.NoError(t, db.QueryRow(
		"SELECT nombre_razon_social FROM contribuyentes WHERE ruc = '111'").Scan(&nombre))
	assert.Equal(t, "ACME SA", nombre)
}

func TestDuplicateKeyLastWriterWins(t *testing.T) {
	content := "H1|H2\n" +
		"333|PRIMERA|ACTIVO\n" +
		"333|SEGUNDA|BAJA\n"
	src := writeSource(t, content)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	res := runLoad(t, src, dbPath, 10)
	assert.Equal(t, int64(2), res.LinesRead)

	db := openDB(t, dbPath)
	assert.Equal(t, int64(1), countRows(t, db))

	var nombre, estado string
	require.NoError(t, db.QueryRow(
		"SELECT nombre_razon_social, estado_contribuyente FROM contribuyentes WHERE ruc = '333'",
	).Scan(&nombre, &estado))
	assert.Equal(t, "SEGUNDA", nombre)
	assert.Equal(t, "BAJA", estado)
}

func TestParseErrorsCountedNotFatal(t *testing.T) {
	content := "H1|H2\n" +
		"111|ACME SA|ACTIVO\n" +
		"|SIN RUC|ACTIVO\n" +
		"\n" +
		"222|BETA SAC|BAJA\n"
	src := writeSource(t, content)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	res := runLoad(t, src, dbPath, 10)
	assert.Equal(t, int64(4), res.LinesRead)
	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, int64(2), res.ParseErrors)

	db := openDB(t, dbPath)
	// count(*) = lines read - parse errors - failed rows, blank lines included.
	assert.Equal(t, res.LinesRead-res.ParseErrors-res.FailedRows, countRows(t, db))
	assert.Equal(t, int64(2), countRows(t, db))
}

func TestBlankLinesKeepCountsReconciled(t *testing.T) {
	content := "H1|H2\n" +
		"111|ACME SA|ACTIVO\n" +
		"\n" +
		"222|BETA SAC|BAJA\n"
	src := writeSource(t, content)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	res := runLoad(t, src, dbPath, 10)
	assert.Equal(t, int64(3), res.LinesRead)
	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, int64(1), res.ParseErrors)
	assert.Equal(t, int64(0), res.FailedRows)

	db := openDB(t, dbPath)
	assert.Equal(t, res.LinesRead-res.ParseErrors-res.FailedRows, countRows(t, db))
}

func TestRunLoadsGzipSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padron.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(sampleFile))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	dbPath := filepath.Join(t.TempDir(), "test.db")
	res := runLoad(t, path, dbPath, 2)
	assert.Equal(t, int64(2), res.Inserted)
}

func TestCancelledRunRollsBack(t *testing.T) {
	src := writeSource(t, sampleFile)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Config{SourcePath: src, DBPath: dbPath, BatchSize: 2})
	require.Error(t, err)

	// The table was recreated but the load transaction rolled back.
	db := openDB(t, dbPath)
	assert.Equal(t, int64(0), countRows(t, db))
}

func TestIndexesBuiltAfterLoad(t *testing.T) {
	src := writeSource(t, sampleFile)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	runLoad(t, src, dbPath, 2)

	db := openDB(t, dbPath)
	for _, idx := range SecondaryIndexes {
		var name string
		require.NoError(t, db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx.Name,
		).Scan(&name), "index %s", idx.Name)
	}
}

func TestInsertSQLShape(t *testing.T) {
	q := insertSQL(2)
	assert.Contains(t, q, "INSERT OR REPLACE INTO contribuyentes")
	assert.Contains(t, q, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?),(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
}
