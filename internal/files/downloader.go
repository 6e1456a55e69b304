// Package files implements the bounded-concurrency OOB attachment
// downloader: fetching URLs referenced by XEP-0066 out-of-band data,
// categorizing and persisting them under the memory façade's files/ dir.
package files

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const maxFileBytes = 25 * 1024 * 1024 // 25 MiB

// Category classifies a downloaded file for prompt assembly.
type Category int

const (
	CategoryOther Category = iota
	CategoryImage
	CategoryDocument
)

var extensionFallback = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

func categorize(contentType string) Category {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"),
		strings.HasPrefix(contentType, "image/png"),
		strings.HasPrefix(contentType, "image/gif"),
		strings.HasPrefix(contentType, "image/webp"):
		return CategoryImage
	case strings.HasPrefix(contentType, "application/pdf"):
		return CategoryDocument
	default:
		return CategoryOther
	}
}

// DownloadedFile is the result of one successful OOB fetch.
type DownloadedFile struct {
	Path        string
	Filename    string
	ContentType string
	Category    Category
	Data        []byte
}

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeFilename(name string) string {
	if name == "" {
		return "file"
	}
	return filenameSanitizer.ReplaceAllString(name, "_")
}

// Downloader fetches OOB attachments with a bounded number in flight
// across all concurrent attachment tasks, matching the runtime's
// "download latency must not stall the reader" requirement.
type Downloader struct {
	client *http.Client
	sem    chan struct{}
}

func NewDownloader(maxConcurrent int) *Downloader {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Downloader{
		client: &http.Client{},
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// allowedPlainHTTPHost reports whether host (a URL's host[:port]) may be
// fetched over plain HTTP; anything else must use HTTPS.
func allowedPlainHTTPHost(host string) bool {
	h := (&url.URL{Host: host}).Hostname()
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}

func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "https":
		return u, nil
	case "http":
		if allowedPlainHTTPHost(u.Host) {
			return u, nil
		}
		return nil, fmt.Errorf("plain HTTP not allowed for host %q", u.Host)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

// Download fetches rawURL, enforcing the scheme/size rules, and saves the
// body under destDir as "<uuid>_<sanitized-name>".
func (d *Downloader) Download(ctx context.Context, rawURL, destDir string) (*DownloadedFile, error) {
	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	u, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %s", rawURL, resp.Status)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxFileBytes {
			return nil, fmt.Errorf("download %s: Content-Length %d exceeds max %d", rawURL, n, maxFileBytes)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	if len(data) > maxFileBytes {
		return nil, fmt.Errorf("download %s: body exceeds max %d bytes", rawURL, maxFileBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = guessContentType(u.Path)
	} else if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}

	baseName := sanitizeFilename(filepath.Base(u.Path))
	finalName := fmt.Sprintf("%s_%s", uuid.NewString(), baseName)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dest dir: %w", err)
	}
	finalPath := filepath.Join(destDir, finalName)
	if err := os.WriteFile(finalPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write downloaded file: %w", err)
	}

	return &DownloadedFile{
		Path:        finalPath,
		Filename:    finalName,
		ContentType: contentType,
		Category:    categorize(contentType),
		Data:        data,
	}, nil
}

func guessContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := extensionFallback[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
