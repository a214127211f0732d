// Package netcache downloads remote templates into a local cache directory
// and revalidates them with ETag/Last-Modified on later runs.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// MaxTemplateSize caps a downloaded template.
const MaxTemplateSize = 4 << 20

// ErrTooLarge is returned for a download bigger than MaxTemplateSize.
var ErrTooLarge = errors.New("template exceeds size limit")

// Cache is a persistent HTTP cache for template files.
type Cache struct {
	Dir     string
	Client  *http.Client
	Logger  *slog.Logger
	Retries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

func New(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Logger:  logger,
		Retries: 3,
		Backoff: time.Second,
	}
}

// IsURL reports whether s names an http(s) template.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Filename     string `json:"filename,omitempty"`
	DataFile     string `json:"data_file"`
}

// Template is a cached remote template.
type Template struct {
	Path      string
	Filename  string
	FromCache bool
}

// Source reads the cached template text.
func (t *Template) Source() (string, error) {
	b, err := os.ReadFile(t.Path)
	if err != nil {
		return "", fmt.Errorf("reading cached template: %w", err)
	}
	return string(b), nil
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("fetching %s: HTTP %d", e.url, e.code) }

// Get returns the cached copy of rawURL, downloading it if needed. A cached
// copy is revalidated with a conditional request; when the server cannot be
// reached the cached copy is used as is.
func (c *Cache) Get(ctx context.Context, rawURL string) (*Template, error) {
	key := hash(rawURL)
	mpath := filepath.Join(c.Dir, key+".json")

	if m, ok := c.readMeta(mpath, rawURL); ok {
		t, err := c.revalidate(ctx, key, mpath, m)
		if err == nil {
			return t, nil
		}
		c.Logger.Warn("Using cached template, revalidation failed", "url", rawURL, "error", err)
		return &Template{Path: filepath.Join(c.Dir, m.DataFile), Filename: m.Filename, FromCache: true}, nil
	}

	var lastErr error
	delay := c.Backoff
	for attempt := 0; attempt < max(c.Retries, 1); attempt++ {
		if attempt > 0 {
			c.Logger.Debug("Retrying download", "url", rawURL, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		t, err := c.fetch(ctx, key, mpath, rawURL, nil)
		if err == nil {
			return t, nil
		}
		lastErr = err
		if se, ok := err.(*statusError); ok && se.code < 500 {
			break
		}
		if errors.Is(err, ErrTooLarge) {
			break
		}
	}
	return nil, lastErr
}

func (c *Cache) revalidate(ctx context.Context, key, mpath string, m meta) (*Template, error) {
	t, err := c.fetch(ctx, key, mpath, m.URL, func(req *http.Request) {
		if m.ETag != "" {
			req.Header.Set("If-None-Match", m.ETag)
		}
		if m.LastModified != "" {
			req.Header.Set("If-Modified-Since", m.LastModified)
		}
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		c.Logger.Debug("Template not modified", "url", m.URL)
		return &Template{Path: filepath.Join(c.Dir, m.DataFile), Filename: m.Filename, FromCache: true}, nil
	}
	return t, nil
}

// fetch performs one GET. It returns a nil template on 304.
func (c *Cache) fetch(ctx context.Context, key, mpath, rawURL string, prepare func(*http.Request)) (*Template, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if prepare != nil {
		prepare(req)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && prepare != nil {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{url: rawURL, code: resp.StatusCode}
	}

	dataFile := key + ".data"
	dst := filepath.Join(c.Dir, dataFile)
	if err := streamToFile(&cappedReader{r: resp.Body, left: MaxTemplateSize}, dst, 0o644); err != nil {
		return nil, fmt.Errorf("caching %s: %w", rawURL, err)
	}
	m := meta{
		URL:          rawURL,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Filename:     contentFilename(rawURL, resp),
		DataFile:     dataFile,
	}
	if err := writeMeta(mpath, m); err != nil {
		return nil, fmt.Errorf("caching %s: %w", rawURL, err)
	}
	c.Logger.Info("Downloaded template", "url", rawURL, "path", dst)
	return &Template{Path: dst, Filename: m.Filename}, nil
}

func (c *Cache) readMeta(mpath, rawURL string) (meta, bool) {
	var m meta
	b, err := os.ReadFile(mpath)
	if err != nil {
		return m, false
	}
	if err := json.Unmarshal(b, &m); err != nil {
		c.Logger.Debug("Ignoring corrupt cache entry", "path", mpath, "error", err)
		return m, false
	}
	if m.URL != rawURL || m.DataFile == "" || !fileExists(filepath.Join(c.Dir, m.DataFile)) {
		return m, false
	}
	return m, true
}

// cappedReader fails with ErrTooLarge once more than left bytes arrive.
type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return 0, ErrTooLarge
	}
	return n, err
}

func streamToFile(r io.Reader, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// contentFilename takes the name from Content-Disposition, else the last
// URL path segment.
func contentFilename(rawURL string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." && base != "" {
			return base
		}
	}
	return "template.cpy"
}
