package files

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownloadSavesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake-png-bytes"))
	}))
	defer srv.Close()

	d := NewDownloader(2)
	destDir := t.TempDir()

	got, err := d.Download(context.Background(), srv.URL+"/pic.png", destDir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got.Category != CategoryImage {
		t.Fatalf("Category = %v, want CategoryImage", got.Category)
	}
	if !strings.HasSuffix(got.Filename, "_pic.png") {
		t.Fatalf("Filename = %q", got.Filename)
	}
	if _, err := os.Stat(filepath.Join(destDir, got.Filename)); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestDownloadRejectsPlainHTTPForPublicHost(t *testing.T) {
	d := NewDownloader(1)
	_, err := d.Download(context.Background(), "http://example.com/file.pdf", t.TempDir())
	if err == nil {
		t.Fatalf("expected error for plain HTTP on public host")
	}
}

func TestDownloadAllowsPlainHTTPForLocalhost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-fake"))
	}))
	defer srv.Close()

	d := NewDownloader(1)
	got, err := d.Download(context.Background(), srv.URL+"/doc.pdf", t.TempDir())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got.Category != CategoryDocument {
		t.Fatalf("Category = %v, want CategoryDocument", got.Category)
	}
}

func TestDownloadRejectsOversizedContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "30000000")
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	d := NewDownloader(1)
	_, err := d.Download(context.Background(), srv.URL+"/big.bin", t.TempDir())
	if err == nil {
		t.Fatalf("expected error for oversized Content-Length")
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := sanitizeFilename("weird name?.jpg")
	if strings.ContainsAny(got, " ?") {
		t.Fatalf("sanitizeFilename left unsafe characters: %q", got)
	}
}
