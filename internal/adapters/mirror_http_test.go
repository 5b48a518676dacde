package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrepo/internal/ports"
	"myrepo/internal/types"
)

func readAll(t *testing.T, body io.ReadCloser) string {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(data)
}

func TestNewMirrorSourceAdapterValidation(t *testing.T) {
	_, err := NewMirrorSourceAdapter(MirrorSourceOptions{})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = NewMirrorSourceAdapter(MirrorSourceOptions{Mirrors: []string{"ftp://mirror.example/$repo"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{Mirrors: []string{" https://a.example/$repo/os/$arch ", "https://a.example/$repo/os/$arch"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/$repo/os/$arch"}, source.Mirrors())
}

func TestExpandMirror(t *testing.T) {
	assert.Equal(t, "https://mirror.example/core/os/x86_64", expandMirror("https://mirror.example/$repo/os/$arch/", "core", "x86_64"))
	assert.Equal(t, "file:///srv/mirror/extra", expandMirror("file:///srv/mirror/$repo", "extra", "aarch64"))
}

func TestMirrorSourceFetchesOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/core/os/x86_64/core.db":
			_, _ = w.Write([]byte("index-bytes"))
		case "/core/os/x86_64/bash-5.2-1-x86_64.pkg.tar.zst":
			_, _ = w.Write([]byte("package-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{Mirrors: []string{server.URL + "/$repo/os/$arch"}})
	require.NoError(t, err)

	index, err := source.FetchIndex(context.Background(), "core", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "index-bytes", string(index))

	ref := ports.PackageRef{Repository: "core", Architecture: "x86_64", Filename: "bash-5.2-1-x86_64.pkg.tar.zst"}
	body, err := source.FetchPackage(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "package-bytes", readAll(t, body))

	_, err = source.FetchSignature(context.Background(), ref)
	require.ErrorIs(t, err, types.ErrSignatureNotFound)

	_, err = source.FetchPackage(context.Background(), ports.PackageRef{Repository: "core", Architecture: "x86_64", Filename: "absent.pkg.tar.zst"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestMirrorSourceFallsBackToNextMirror(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer broken.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("from-second"))
	}))
	defer healthy.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{
		Mirrors: []string{broken.URL + "/$repo", healthy.URL + "/$repo"},
	})
	require.NoError(t, err)
	index, err := source.FetchIndex(context.Background(), "extra", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "from-second", string(index))
}

func TestMirrorSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{
		Mirrors:          []string{server.URL + "/$repo"},
		HTTPRetries:      3,
		HTTPRetryDelayMs: 1,
	})
	require.NoError(t, err)
	index, err := source.FetchIndex(context.Background(), "core", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(index))
	assert.Equal(t, int32(3), calls.Load())
}

func TestMirrorSourceAllMirrorsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{
		Mirrors:          []string{server.URL + "/$repo"},
		HTTPRetries:      2,
		HTTPRetryDelayMs: 1,
	})
	require.NoError(t, err)
	_, err = source.FetchIndex(context.Background(), "core", "x86_64")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}

func TestMirrorSourceCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{Mirrors: []string{server.URL + "/$repo"}})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.FetchIndex(ctx, "core", "x86_64")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}

// streamChunks writes count chunks of 1 KiB, waiting gap before each one.
func streamChunks(count int, gap time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 1024)
		w.Header().Set("Content-Length", strconv.Itoa(count*len(chunk)))
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		for i := 0; i < count; i++ {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(gap):
			}
			_, _ = w.Write(chunk)
			w.(http.Flusher).Flush()
		}
	}
}

func TestMirrorSourceSlowPackageOutlastsTimeout(t *testing.T) {
	server := httptest.NewServer(streamChunks(6, 300*time.Millisecond))
	defer server.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{
		Mirrors:        []string{server.URL + "/$repo/os/$arch"},
		HTTPTimeoutSec: 1,
	})
	require.NoError(t, err)
	ref := ports.PackageRef{Repository: "core", Architecture: "x86_64", Filename: "linux-firmware-20240409-1-any.pkg.tar.zst"}
	body, err := source.FetchPackage(t.Context(), ref)
	require.NoError(t, err)
	defer body.Close()

	start := time.Now()
	n, err := io.Copy(io.Discard, body)
	require.NoError(t, err)
	assert.Equal(t, int64(6*1024), n)
	assert.Greater(t, time.Since(start), time.Second)
}

func TestMirrorSourceStalledPackageTimesOut(t *testing.T) {
	server := httptest.NewServer(streamChunks(2, 2500*time.Millisecond))
	defer server.Close()

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{
		Mirrors:        []string{server.URL + "/$repo/os/$arch"},
		HTTPTimeoutSec: 1,
	})
	require.NoError(t, err)
	ref := ports.PackageRef{Repository: "core", Architecture: "x86_64", Filename: "glibc-2.39-1-x86_64.pkg.tar.zst"}
	body, err := source.FetchPackage(t.Context(), ref)
	require.NoError(t, err)
	defer body.Close()

	_, err = io.Copy(io.Discard, body)
	require.Error(t, err)
}

func TestMirrorSourceFileMirror(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mirror/core/os/x86_64/core.db", []byte("local-index"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/mirror/core/os/x86_64/glibc-2.39-1-x86_64.pkg.tar.zst.sig", []byte("sig"), 0o644))

	source, err := NewMirrorSourceAdapter(MirrorSourceOptions{
		Mirrors: []string{"file:///mirror/$repo/os/$arch"},
		Fs:      fs,
	})
	require.NoError(t, err)

	index, err := source.FetchIndex(context.Background(), "core", "x86_64")
	require.NoError(t, err)
	assert.Equal(t, "local-index", string(index))

	ref := ports.PackageRef{Repository: "core", Architecture: "x86_64", Filename: "glibc-2.39-1-x86_64.pkg.tar.zst"}
	sig, err := source.FetchSignature(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "sig", readAll(t, sig))

	_, err = source.FetchPackage(context.Background(), ref)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	_, err = source.FetchSignature(context.Background(), ports.PackageRef{Repository: "extra", Architecture: "x86_64", Filename: "vim.pkg.tar.zst"})
	require.ErrorIs(t, err, types.ErrSignatureNotFound)
}

func TestHTTPRetryDelayIsCapped(t *testing.T) {
	cfg := normalizeHTTPConfig(0, 0, 0)
	assert.Equal(t, defaultHTTPTimeout, cfg.timeout)
	assert.Equal(t, defaultHTTPRetries, cfg.retries)
	delay := httpRetryDelay(10, cfg)
	assert.GreaterOrEqual(t, delay, maxHTTPRetryDelay)
	assert.LessOrEqual(t, delay, maxHTTPRetryDelay+maxHTTPRetryDelay/2)
}
