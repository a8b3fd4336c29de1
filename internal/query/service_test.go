package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/loader"
)

const testPadron = "RUC|NOMBRE\n" +
	"10452159428|PEREZ GOMEZ JUAN|ACTIVO|HABIDO|150101|AV|AREQUIPA|-|-|1200|-|-|-|-|-\n" +
	"20131312955|BANCO DE CREDITO DEL PERU|ACTIVO|HABIDO|150122|AV|CENTENARIO|-|-|156|-|-|-|-|-\n" +
	"20100047218|TELEFONICA DEL PERU SAA|BAJA|NO HABIDO|070101|JR|CALLAO|-|-|40|-|-|-|-|-\n"

// newTestService loads a small padrón into a temp database and opens a
// service over it.
func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "padron.txt")
	require.NoError(t, os.WriteFile(src, []byte(testPadron), 0644))
	dbPath := filepath.Join(dir, "test.db")

	_, err := loader.Run(context.Background(), loader.Config{
		SourcePath: src,
		DBPath:     dbPath,
		BatchSize:  2,
	})
	require.NoError(t, err)

	svc, err := Open(dbPath, 10)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestOpenRejectsUnloadedDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "empty.db"), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "padron-load")
}

func TestByRUCFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec, err := svc.ByRUC(ctx, "10452159428")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "PEREZ GOMEZ JUAN", *rec.NombreRazonSocial)
	assert.Equal(t, "AV AREQUIPA 1200", rec.DireccionSimple())
}

func TestByRUCNormalizesInput(t *testing.T) {
	svc := newTestService(t)

	rec, err := svc.ByRUC(context.Background(), " 10-452159.428 ")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "10452159428", rec.RUC)
}

func TestByRUCNotFound(t *testing.T) {
	svc := newTestService(t)

	rec, err := svc.ByRUC(context.Background(), "99999999999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestByRUCInvalid(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ByRUC(context.Background(), "123")
	require.Error(t, err)
}

func TestByRUCCacheCounters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ByRUC(ctx, "20131312955")
	require.NoError(t, err)
	_, err = svc.ByRUC(ctx, "20131312955")
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Counters.Queries)
	assert.Equal(t, int64(1), st.Counters.CacheHits)
	assert.Equal(t, int64(1), st.Counters.CacheMisses)
	assert.Equal(t, int64(2), st.Counters.Found)
	assert.Equal(t, 1, st.CacheSize)
	assert.InDelta(t, 50.0, st.Counters.HitRate(), 0.001)
}

func TestByName(t *testing.T) {
	svc := newTestService(t)

	recs, err := svc.ByName(context.Background(), "banco de credito", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "20131312955", recs[0].RUC)
}

func TestByNameRespectsLimit(t *testing.T) {
	svc := newTestService(t)

	recs, err := svc.ByName(context.Background(), "PERU", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestByDepartment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	recs, err := svc.ByDepartment(ctx, "15", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = svc.ByDepartment(ctx, "07", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "20100047218", recs[0].RUC)

	_, err = svc.ByDepartment(ctx, "7", 10)
	assert.Error(t, err)
	_, err = svc.ByDepartment(ctx, "XX", 10)
	assert.Error(t, err)
}

func TestByEstado(t *testing.T) {
	svc := newTestService(t)

	recs, err := svc.ByEstado(context.Background(), " activo ", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestDepartamentos(t *testing.T) {
	svc := newTestService(t)

	vcs, err := svc.Departamentos(context.Background())
	require.NoError(t, err)
	require.Len(t, vcs, 2)
	// Most frequent first.
	assert.Equal(t, ValueCount{Valor: "15", Total: 2}, vcs[0])
	assert.Equal(t, ValueCount{Valor: "07", Total: 1}, vcs[1])
}

func TestEstados(t *testing.T) {
	svc := newTestService(t)

	vcs, err := svc.Estados(context.Background())
	require.NoError(t, err)
	require.Len(t, vcs, 2)
	assert.Equal(t, ValueCount{Valor: "ACTIVO", Total: 2}, vcs[0])
	assert.Equal(t, ValueCount{Valor: "BAJA", Total: 1}, vcs[1])
}

func TestValidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	v, err := svc.Validate(ctx, "20131312955")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	require.NotNil(t, v.Nombre)
	assert.Equal(t, "BANCO DE CREDITO DEL PERU", *v.Nombre)

	v, err = svc.Validate(ctx, "99999999999")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Mensaje)
}

func TestStatsTableRows(t *testing.T) {
	svc := newTestService(t)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TableRows)
}
