// padron-download — Fetch the SUNAT padrón reducido extract
//
// Downloads the published padrón archive to a local path, ready for
// padron-load. Uses ETag validation against a sidecar file so a cron'd run
// only re-downloads when SUNAT publishes a new extract, and writes through a
// .tmp rename so an interrupted download never leaves a partial file behind.
//
// Build: go build -ldflags="-s -w" -o build/padron-download ./cmd/padron-download

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Version can be overridden at build time via -ldflags
var Version = "dev"

var userAgent = fmt.Sprintf("padron-download/%s (sistema-de-consulta-ruc)", Version)

const defaultURL = "https://www2.sunat.gob.pe/padron_reducido_ruc.zip"

// remoteETag does a HEAD request and returns the ETag header value.
func remoteETag(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP HEAD: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return resp.Header.Get("ETag"), nil
}

// readETag reads a saved ETag from a sidecar file.
func readETag(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// writeETag saves an ETag to a sidecar file.
func writeETag(path, etag string) error {
	return os.WriteFile(path, []byte(etag+"\n"), 0644)
}

// downloadFile streams url to destPath through a .tmp rename, saving the
// response ETag alongside.
func downloadFile(ctx context.Context, client *http.Client, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename: %w", err)
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		writeETag(destPath+".etag", etag)
	}

	return n, nil
}

func main() {
	url := flag.String("url", defaultURL, "Padrón archive URL")
	dest := flag.String("dest", "padron_reducido_ruc.zip", "Destination file")
	timeout := flag.Duration("timeout", 30*time.Minute, "HTTP timeout for the download")
	force := flag.Bool("force", false, "Re-download even if the ETag is unchanged")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padron-download v%s — Fetch the SUNAT padrón extract\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Downloads the padrón archive with ETag validation: unchanged files\n")
		fmt.Fprintf(os.Stderr, "are skipped, so it is safe to run from cron ahead of padron-load.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  padron-download --dest /data/padron_reducido_ruc.zip\n")
		fmt.Fprintf(os.Stderr, "  padron-download --force\n")
	}

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintf(os.Stderr, "\nInterrupt received, aborting download...\n")
		cancel()
	}()

	fmt.Printf("padron-download v%s\n", Version)
	fmt.Printf("Source:      %s\n", *url)
	fmt.Printf("Destination: %s\n", *dest)
	fmt.Printf("Timeout:     %v\n", *timeout)
	if *force {
		fmt.Printf("Mode:        force (ignoring ETag)\n")
	}
	fmt.Println()

	if dir := filepath.Dir(*dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Cannot create directory: %v\n", err)
			os.Exit(1)
		}
	}

	client := &http.Client{Timeout: *timeout}
	etagPath := *dest + ".etag"
	start := time.Now()

	if !*force {
		if info, err := os.Stat(*dest); err == nil && info.Size() > 0 {
			localETag := readETag(etagPath)
			if localETag != "" {
				remote, err := remoteETag(ctx, client, *url)
				if err == nil && remote == localETag {
					fmt.Printf("Unchanged (ETag %s), skipping download\n", localETag)
					return
				}
				if err != nil {
					fmt.Printf("HEAD failed (%v), re-downloading\n", err)
				} else {
					fmt.Printf("ETag changed, re-downloading\n")
				}
			}
		}
	}

	size, err := downloadFile(ctx, client, *url, *dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Printf("Downloaded %s in %v", formatBytes(size), elapsed.Round(time.Second))
	if elapsed.Seconds() > 0 {
		fmt.Printf(" (%.2f MB/s)", float64(size)/elapsed.Seconds()/1024/1024)
	}
	fmt.Println()
	fmt.Printf("Next: unzip, then padron-load --src <extracted .txt>\n")
}

// formatBytes returns a human-readable byte size.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
