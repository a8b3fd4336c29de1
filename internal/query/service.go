// Package query is the read side over the table the loader produces: exact
// RUC lookup, name/estado search, and ubigeo prefix search, with a bounded
// in-memory cache and per-service counters.
//
// A Service is constructed explicitly and owns its connection, cache, and
// counters; there is no process-wide singleton. A single lock serializes
// cache and counter access so the service can be shared across request
// handlers.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/loader"
	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/padron"
)

// DefaultCacheSize is the bounded cache capacity (records).
const DefaultCacheSize = 10_000

// Counters holds the per-service statistics. Snapshots are returned by
// value; nothing increments a shared global.
type Counters struct {
	Queries     int64
	Found       int64
	NotFound    int64
	Failed      int64
	CacheHits   int64
	CacheMisses int64
	TotalTime   time.Duration
}

// HitRate is cache hits over cache lookups, as a percentage.
func (c Counters) HitRate() float64 {
	total := c.CacheHits + c.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(c.CacheHits) / float64(total) * 100
}

// SuccessRate is found lookups over total queries, as a percentage.
func (c Counters) SuccessRate() float64 {
	if c.Queries == 0 {
		return 0
	}
	return float64(c.Found) / float64(c.Queries) * 100
}

// Service answers lookups against a loaded contribuyentes table.
type Service struct {
	db *sql.DB

	mu       sync.Mutex
	cache    *fifoCache
	counters Counters
}

// Open connects to the database at path and verifies that the loader's
// table exists. cacheSize <= 0 uses DefaultCacheSize.
func Open(path string, cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", loader.TableName,
	).Scan(&name)
	if err != nil {
		db.Close()
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("table %s not found in %s: run padron-load first", loader.TableName, path)
		}
		return nil, fmt.Errorf("check table: %w", err)
	}

	return &Service{db: db, cache: newFIFOCache(cacheSize)}, nil
}

// Close releases the database connection.
func (s *Service) Close() error {
	return s.db.Close()
}

const selectCols = "ruc, nombre_razon_social, estado_contribuyente, condicion_domicilio, " +
	"ubigeo, tipo_via, nombre_via, codigo_zona, tipo_zona, numero, interior, lote, " +
	"departamento, manzana, kilometro"

// scanRecord reads one row into a record, mapping SQL NULLs to nil fields.
func scanRecord(scan func(dest ...any) error) (*padron.Contribuyente, error) {
	var ruc string
	ns := make([]sql.NullString, padron.FieldCount-1)
	dest := make([]any, 0, padron.FieldCount)
	dest = append(dest, &ruc)
	for i := range ns {
		dest = append(dest, &ns[i])
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	opt := func(i int) *string {
		if !ns[i].Valid {
			return nil
		}
		v := ns[i].String
		return &v
	}
	return &padron.Contribuyente{
		RUC:                 ruc,
		NombreRazonSocial:   opt(0),
		EstadoContribuyente: opt(1),
		CondicionDomicilio:  opt(2),
		Ubigeo:              opt(3),
		TipoVia:             opt(4),
		NombreVia:           opt(5),
		CodigoZona:          opt(6),
		TipoZona:            opt(7),
		Numero:              opt(8),
		Interior:            opt(9),
		Lote:                opt(10),
		Departamento:        opt(11),
		Manzana:             opt(12),
		Kilometro:           opt(13),
	}, nil
}

// ByRUC looks up one taxpayer by its 11-digit RUC, consulting the cache
// first. Returns (nil, nil) when the RUC is well-formed but not in the
// padrón.
func (s *Service) ByRUC(ctx context.Context, ruc string) (*padron.Contribuyente, error) {
	start := time.Now()
	s.mu.Lock()
	s.counters.Queries++
	s.mu.Unlock()

	clean, err := padron.NormalizeRUC(ruc)
	if err != nil {
		s.record(start, func(c *Counters) { c.Failed++ })
		return nil, err
	}

	s.mu.Lock()
	rec, hit := s.cache.Get(clean)
	if hit {
		s.counters.CacheHits++
		s.counters.Found++
		s.counters.TotalTime += time.Since(start)
		s.mu.Unlock()
		return rec, nil
	}
	s.counters.CacheMisses++
	s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectCols+" FROM "+loader.TableName+" WHERE ruc = ? LIMIT 1", clean)
	rec, err = scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		s.record(start, func(c *Counters) { c.NotFound++ })
		return nil, nil
	}
	if err != nil {
		s.record(start, func(c *Counters) { c.Failed++ })
		return nil, fmt.Errorf("lookup ruc %s: %w", clean, err)
	}

	s.mu.Lock()
	s.cache.Put(clean, rec)
	s.counters.Found++
	s.counters.TotalTime += time.Since(start)
	s.mu.Unlock()
	return rec, nil
}

func (s *Service) record(start time.Time, f func(*Counters)) {
	s.mu.Lock()
	f(&s.counters)
	s.counters.TotalTime += time.Since(start)
	s.mu.Unlock()
}

// queryList runs a multi-row lookup and scans the results.
func (s *Service) queryList(ctx context.Context, where, orderBy string, args ...any) ([]*padron.Contribuyente, error) {
	q := "SELECT " + selectCols + " FROM " + loader.TableName + " WHERE " + where +
		" ORDER BY " + orderBy + " LIMIT ?"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*padron.Contribuyente
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ByName searches nombre_razon_social case-insensitively by substring.
func (s *Service) ByName(ctx context.Context, name string, limit int) ([]*padron.Contribuyente, error) {
	if limit <= 0 {
		limit = 10
	}
	term := "%" + strings.ToUpper(strings.TrimSpace(name)) + "%"
	recs, err := s.queryList(ctx,
		"UPPER(nombre_razon_social) LIKE ?", "nombre_razon_social", term, limit)
	if err != nil {
		return nil, fmt.Errorf("search by name: %w", err)
	}
	return recs, nil
}

// ByDepartment returns taxpayers whose ubigeo starts with the given 2-digit
// department code.
func (s *Service) ByDepartment(ctx context.Context, dept string, limit int) ([]*padron.Contribuyente, error) {
	if limit <= 0 {
		limit = 20
	}
	if len(dept) != 2 || strings.Trim(dept, "0123456789") != "" {
		return nil, fmt.Errorf("department code must be 2 digits, got %q", dept)
	}
	recs, err := s.queryList(ctx,
		"ubigeo LIKE ? || '%'", "nombre_razon_social", dept, limit)
	if err != nil {
		return nil, fmt.Errorf("search by department: %w", err)
	}
	return recs, nil
}

// ByEstado returns taxpayers with the given estado_contribuyente.
func (s *Service) ByEstado(ctx context.Context, estado string, limit int) ([]*padron.Contribuyente, error) {
	if limit <= 0 {
		limit = 20
	}
	recs, err := s.queryList(ctx,
		"estado_contribuyente = ?", "nombre_razon_social",
		strings.ToUpper(strings.TrimSpace(estado)), limit)
	if err != nil {
		return nil, fmt.Errorf("search by estado: %w", err)
	}
	return recs, nil
}

// ValueCount is one distinct column value and the number of rows carrying it.
type ValueCount struct {
	Valor string `json:"valor"`
	Total int64  `json:"total"`
}

// distinctCounts runs a GROUP BY over expr and returns the value/count pairs,
// most frequent first.
func (s *Service) distinctCounts(ctx context.Context, expr string) ([]ValueCount, error) {
	q := "SELECT " + expr + ", COUNT(*) FROM " + loader.TableName +
		" WHERE " + expr + " IS NOT NULL GROUP BY " + expr + " ORDER BY COUNT(*) DESC"
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValueCount
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Valor, &vc.Total); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// Departamentos lists the distinct 2-digit department codes (ubigeo prefixes)
// present in the padrón, with taxpayer counts.
func (s *Service) Departamentos(ctx context.Context) ([]ValueCount, error) {
	vcs, err := s.distinctCounts(ctx, "SUBSTR(ubigeo, 1, 2)")
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return vcs, nil
}

// Estados lists the distinct estado_contribuyente values with taxpayer counts.
func (s *Service) Estados(ctx context.Context) ([]ValueCount, error) {
	vcs, err := s.distinctCounts(ctx, "estado_contribuyente")
	if err != nil {
		return nil, fmt.Errorf("list estados: %w", err)
	}
	return vcs, nil
}

// Validation is the compact result of a RUC existence check.
type Validation struct {
	Valid     bool    `json:"valido"`
	RUC       string  `json:"ruc"`
	Nombre    *string `json:"nombre,omitempty"`
	Estado    *string `json:"estado,omitempty"`
	Condicion *string `json:"condicion,omitempty"`
	Direccion string  `json:"direccion,omitempty"`
	Mensaje   string  `json:"mensaje,omitempty"`
}

// Validate checks whether a RUC exists and returns its basic identity.
func (s *Service) Validate(ctx context.Context, ruc string) (Validation, error) {
	rec, err := s.ByRUC(ctx, ruc)
	if err != nil {
		return Validation{Valid: false, RUC: ruc, Mensaje: err.Error()}, nil
	}
	if rec == nil {
		return Validation{Valid: false, RUC: ruc, Mensaje: "RUC no encontrado en el padrón"}, nil
	}
	return Validation{
		Valid:     true,
		RUC:       rec.RUC,
		Nombre:    rec.NombreRazonSocial,
		Estado:    rec.EstadoContribuyente,
		Condicion: rec.CondicionDomicilio,
		Direccion: rec.DireccionSimple(),
	}, nil
}

// Stats is a point-in-time view of the service and its database.
type Stats struct {
	Counters  Counters `json:"counters"`
	CacheSize int      `json:"cache_size"`
	TableRows int64    `json:"table_rows"`
}

// Stats snapshots the counters and the destination table row count.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var rows int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+loader.TableName).Scan(&rows); err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}
	s.mu.Lock()
	st := Stats{Counters: s.counters, CacheSize: s.cache.Len(), TableRows: rows}
	s.mu.Unlock()
	return st, nil
}
