package netcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smertiens/contemply/internal/testutil"
)

func newCache(t *testing.T) *Cache {
	c := New(t.TempDir(), testutil.NewTestLogger(t))
	c.Backoff = time.Millisecond
	return c
}

func TestGetAndRevalidate(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("Hello $name"))
	}))
	defer srv.Close()

	c := newCache(t)
	url := srv.URL + "/templates/hello.cpy"

	tpl, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.False(t, tpl.FromCache)
	assert.Equal(t, "hello.cpy", tpl.Filename)
	src, err := tpl.Source()
	require.NoError(t, err)
	assert.Equal(t, "Hello $name", src)

	again, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, tpl.Path, again.Path)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), notModified.Load())
}

func TestCachedCopyUsedWhenServerIsGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("cached"))
	}))
	c := newCache(t)
	url := srv.URL + "/x.cpy"
	_, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	srv.Close()

	tpl, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, tpl.FromCache)
	src, err := tpl.Source()
	require.NoError(t, err)
	assert.Equal(t, "cached", src)
}

func TestRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tpl, err := newCache(t).Get(context.Background(), srv.URL+"/a.cpy")
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	src, _ := tpl.Source()
	assert.Equal(t, "ok", src)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newCache(t).Get(context.Background(), srv.URL+"/missing.cpy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestSizeLimit(t *testing.T) {
	cases := []struct {
		name string
		size int
		ok   bool
	}{
		{"at limit", MaxTemplateSize, true},
		{"one byte over", MaxTemplateSize + 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				_, _ = w.Write([]byte(strings.Repeat("x", tc.size)))
			}))
			defer srv.Close()

			c := newCache(t)
			tpl, err := c.Get(context.Background(), srv.URL+"/big.cpy")
			if tc.ok {
				require.NoError(t, err)
				st, err := os.Stat(tpl.Path)
				require.NoError(t, err)
				assert.Equal(t, int64(tc.size), st.Size())
				return
			}
			require.ErrorIs(t, err, ErrTooLarge)
			assert.Equal(t, int32(1), hits.Load())
			entries, err := os.ReadDir(c.Dir)
			if err == nil {
				assert.Empty(t, entries)
			}
			assert.NoFileExists(t, filepath.Join(c.Dir, hash(srv.URL+"/big.cpy")+".data"))
		})
	}
}

func TestContentDispositionFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="../../evil.cpy"`)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	tpl, err := newCache(t).Get(context.Background(), srv.URL+"/download")
	require.NoError(t, err)
	assert.Equal(t, "evil.cpy", tpl.Filename)
}

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/a.cpy": true,
		"http://localhost:8080/a":   true,
		"ftp://example.com/a":       false,
		"home::a.cpy":               false,
		"templates/a.cpy":           false,
		"https://":                  false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsURL(in), in)
	}
}
