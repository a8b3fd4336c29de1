// padron-serve — JSON API over a loaded contribuyentes database
//
// Serves the query service over HTTP:
//
//	GET /health
//	GET /api/v1/ruc/{ruc}
//	GET /api/v1/ruc/{ruc}/validar
//	GET /api/v1/buscar?nombre=...&limit=N
//	GET /api/v1/departamento/{dd}?limit=N
//	GET /api/v1/departamentos
//	GET /api/v1/estado/{estado}?limit=N
//	GET /api/v1/estados
//	GET /api/v1/stats
//
// Build: go build -ldflags="-s -w" -o build/padron-serve ./cmd/padron-serve

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/query"
)

var Version = "dev"

func main() {
	dbPath := flag.String("db", "contribuyentes.db", "SQLite database produced by padron-load")
	addr := flag.String("addr", ":8000", "HTTP listen address")
	cacheSize := flag.Int("cache", query.DefaultCacheSize, "RUC cache capacity (records)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padron-serve v%s — JSON API over the padrón database\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  padron-serve --db /data/contribuyentes.db --addr :8000\n")
		fmt.Fprintf(os.Stderr, "  curl localhost:8000/api/v1/ruc/10452159428\n")
	}

	flag.Parse()

	svc, err := query.Open(*dbPath, *cacheSize)
	if err != nil {
		log.Fatalf("Open database: %v", err)
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      newMux(svc),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutdown requested...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Println("=========================================================")
	log.Printf("Padrón Serve v%s", Version)
	log.Println("=========================================================")
	log.Printf("Database: %s", *dbPath)
	log.Printf("Listen:   %s", *addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server: %v", err)
	}
	log.Println("Server stopped")
}

// newMux wires the handlers. The service handle is passed in explicitly;
// handlers hold no global state.
func newMux(svc *query.Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "padron-serve"})
	})

	mux.HandleFunc("/api/v1/ruc/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/ruc/")
		ruc, tail, _ := strings.Cut(rest, "/")
		if ruc == "" {
			writeError(w, http.StatusBadRequest, "missing RUC")
			return
		}

		if tail == "validar" {
			v, err := svc.Validate(r.Context(), ruc)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, v)
			return
		}
		if tail != "" {
			http.NotFound(w, r)
			return
		}

		rec, err := svc.ByRUC(r.Context(), ruc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, "RUC no encontrado en el padrón")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("/api/v1/buscar", func(w http.ResponseWriter, r *http.Request) {
		nombre := r.URL.Query().Get("nombre")
		if len(strings.TrimSpace(nombre)) < 3 {
			writeError(w, http.StatusBadRequest, "nombre must be at least 3 characters")
			return
		}
		recs, err := svc.ByName(r.Context(), nombre, limitParam(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	mux.HandleFunc("/api/v1/departamentos", func(w http.ResponseWriter, r *http.Request) {
		vcs, err := svc.Departamentos(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, vcs)
	})

	mux.HandleFunc("/api/v1/estados", func(w http.ResponseWriter, r *http.Request) {
		vcs, err := svc.Estados(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, vcs)
	})

	mux.HandleFunc("/api/v1/departamento/", func(w http.ResponseWriter, r *http.Request) {
		dept := strings.TrimPrefix(r.URL.Path, "/api/v1/departamento/")
		recs, err := svc.ByDepartment(r.Context(), dept, limitParam(r))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	mux.HandleFunc("/api/v1/estado/", func(w http.ResponseWriter, r *http.Request) {
		estado := strings.TrimPrefix(r.URL.Path, "/api/v1/estado/")
		if estado == "" {
			writeError(w, http.StatusBadRequest, "missing estado")
			return
		}
		recs, err := svc.ByEstado(r.Context(), estado, limitParam(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	mux.HandleFunc("/api/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	return mux
}

func limitParam(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
