// padron-query — Look up taxpayers in a loaded contribuyentes database
//
// Command-line front end over the query service: exact RUC lookup, name and
// estado search, department (ubigeo prefix) search, RUC validation, and
// single-record export as JSON/CSV/text.
//
// Build: go build -ldflags="-s -w" -o build/padron-query ./cmd/padron-query

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/padron"
	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/query"
)

var Version = "dev"

func main() {
	dbPath := flag.String("db", "contribuyentes.db", "SQLite database produced by padron-load")
	ruc := flag.String("ruc", "", "Look up one RUC")
	nombre := flag.String("nombre", "", "Search by name / razón social (substring)")
	depto := flag.String("depto", "", "Search by 2-digit department code (ubigeo prefix)")
	estado := flag.String("estado", "", "Search by estado_contribuyente")
	validar := flag.String("validar", "", "Validate a RUC and print basic identity")
	limit := flag.Int("limit", 10, "Result limit for searches")
	formato := flag.String("formato", "json", "Output format for --ruc: json, csv, texto")
	stats := flag.Bool("stats", false, "Print database stats and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padron-query v%s — Query the padrón database\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  padron-query --ruc 10452159428\n")
		fmt.Fprintf(os.Stderr, "  padron-query --nombre 'BANCO DE CREDITO' --limit 5\n")
		fmt.Fprintf(os.Stderr, "  padron-query --depto 15 --limit 20\n")
		fmt.Fprintf(os.Stderr, "  padron-query --estado ACTIVO\n")
	}

	flag.Parse()

	svc, err := query.Open(*dbPath, query.DefaultCacheSize)
	if err != nil {
		log.Fatalf("Open database: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()

	switch {
	case *stats:
		st, err := svc.Stats(ctx)
		if err != nil {
			log.Fatalf("Stats: %v", err)
		}
		fmt.Printf("Database:   %s\n", *dbPath)
		fmt.Printf("Table rows: %d\n", st.TableRows)

	case *ruc != "":
		rec, err := svc.ByRUC(ctx, *ruc)
		if err != nil {
			log.Fatalf("Lookup: %v", err)
		}
		if rec == nil {
			fmt.Printf("RUC %s no encontrado\n", *ruc)
			os.Exit(1)
		}
		out, err := rec.Export(*formato)
		if err != nil {
			log.Fatalf("Export: %v", err)
		}
		fmt.Println(out)

	case *validar != "":
		v, err := svc.Validate(ctx, *validar)
		if err != nil {
			log.Fatalf("Validate: %v", err)
		}
		if v.Valid {
			fmt.Printf("RUC %s: VÁLIDO\n", v.RUC)
			fmt.Printf("  Nombre:    %s\n", strOr(v.Nombre))
			fmt.Printf("  Estado:    %s\n", strOr(v.Estado))
			fmt.Printf("  Condición: %s\n", strOr(v.Condicion))
			fmt.Printf("  Dirección: %s\n", v.Direccion)
		} else {
			fmt.Printf("RUC %s: NO VÁLIDO (%s)\n", v.RUC, v.Mensaje)
		}

	case *nombre != "":
		recs, err := svc.ByName(ctx, *nombre, *limit)
		if err != nil {
			log.Fatalf("Search: %v", err)
		}
		printList(recs)

	case *depto != "":
		recs, err := svc.ByDepartment(ctx, *depto, *limit)
		if err != nil {
			log.Fatalf("Search: %v", err)
		}
		printList(recs)

	case *estado != "":
		recs, err := svc.ByEstado(ctx, *estado, *limit)
		if err != nil {
			log.Fatalf("Search: %v", err)
		}
		printList(recs)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func strOr(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func printList(recs []*padron.Contribuyente) {
	if len(recs) == 0 {
		fmt.Println("Sin resultados")
		return
	}
	for i, rec := range recs {
		fmt.Printf("%2d. %s  %-14s %s\n", i+1, rec.RUC, strOr(rec.EstadoContribuyente), strOr(rec.NombreRazonSocial))
		fmt.Printf("    %s | ubigeo %s\n", rec.DireccionSimple(), strOr(rec.Ubigeo))
	}
	fmt.Printf("%d resultado(s)\n", len(recs))
}
