package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"myrepo/internal/ports"
	"myrepo/internal/shared"
	"myrepo/internal/types"
)

const defaultHTTPTimeout = 60 * time.Second
const defaultHTTPRetries = 3
const defaultHTTPRetryDelay = 200 * time.Millisecond
const maxHTTPRetryDelay = 2 * time.Second

// httpRetryConfig.timeout bounds connecting, the TLS handshake, waiting for
// response headers and any single stall while reading a body. It never caps
// a whole transfer that keeps making progress.
type httpRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

func normalizeHTTPConfig(timeoutSec int, retries int, delayMs int) httpRetryConfig {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	retryCount := retries
	if retryCount <= 0 {
		retryCount = defaultHTTPRetries
	}
	baseDelay := time.Duration(delayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultHTTPRetryDelay
	}
	return httpRetryConfig{
		timeout:   timeout,
		retries:   retryCount,
		baseDelay: baseDelay,
	}
}

// MirrorSourceOptions configures the mirror source. Mirrors are server
// templates in pacman mirrorlist form and are tried in order.
type MirrorSourceOptions struct {
	Mirrors          []string
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
	// Fs serves file:// mirrors. Defaults to the OS filesystem.
	Fs afero.Fs
}

// MirrorSourceAdapter fetches indexes and package files over HTTP(S) or
// from file:// mirrors.
type MirrorSourceAdapter struct {
	mirrors []string
	cfg     httpRetryConfig
	client  *http.Client
	fs      afero.Fs
}

func NewMirrorSourceAdapter(opts MirrorSourceOptions) (MirrorSourceAdapter, error) {
	mirrors := shared.UniqueStrings(opts.Mirrors)
	if len(mirrors) == 0 {
		return MirrorSourceAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one mirror is required")
	}
	for _, mirror := range mirrors {
		parsed, err := url.Parse(mirror)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "file") {
			return MirrorSourceAdapter{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unsupported mirror url: %s", mirror))
		}
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfg := normalizeHTTPConfig(opts.HTTPTimeoutSec, opts.HTTPRetries, opts.HTTPRetryDelayMs)
	return MirrorSourceAdapter{
		mirrors: mirrors,
		cfg:     cfg,
		client:  newHTTPClient(cfg.timeout),
		fs:      fs,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// Mirrors returns the mirror templates in the order they are tried.
func (a MirrorSourceAdapter) Mirrors() []string {
	return append([]string(nil), a.mirrors...)
}

func (a MirrorSourceAdapter) FetchIndex(ctx context.Context, repository string, arch string) ([]byte, error) {
	body, err := a.open(ctx, repository, arch, repository+".db")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read %s index", repository)).
			WithCause(err)
	}
	return data, nil
}

func (a MirrorSourceAdapter) FetchPackage(ctx context.Context, ref ports.PackageRef) (io.ReadCloser, error) {
	return a.open(ctx, ref.Repository, ref.Architecture, ref.Filename)
}

func (a MirrorSourceAdapter) FetchSignature(ctx context.Context, ref ports.PackageRef) (io.ReadCloser, error) {
	return a.open(ctx, ref.Repository, ref.Architecture, ref.Filename+".sig")
}

// open tries every mirror in turn. When all of them answer "not found" the
// error wraps types.ErrSignatureNotFound for signature names and
// errbuilder.CodeNotFound otherwise.
func (a MirrorSourceAdapter) open(ctx context.Context, repository string, arch string, name string) (io.ReadCloser, error) {
	var lastErr error
	notFound := 0
	for _, mirror := range a.mirrors {
		target := expandMirror(mirror, repository, arch) + "/" + name
		body, missing, err := a.get(ctx, target)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(ctx.Err())
		}
		if missing {
			notFound++
		}
		lastErr = err
		log.Ctx(ctx).Debug().Err(err).Str("url", target).Msg("mirror failed, trying next")
	}
	if notFound == len(a.mirrors) {
		if strings.HasSuffix(name, ".sig") {
			return nil, fmt.Errorf("%s: %w", name, types.ErrSignatureNotFound)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s not found on any mirror", name)).
			WithCause(lastErr)
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to fetch %s from all mirrors", name)).
		WithCause(lastErr)
}

func (a MirrorSourceAdapter) get(ctx context.Context, target string) (io.ReadCloser, bool, error) {
	if strings.HasPrefix(target, "file://") {
		return a.openFile(target)
	}
	reqCtx, cancel := context.WithCancel(ctx)
	resp, err := doRequest(reqCtx, a.client, target, a.cfg)
	if err != nil {
		cancel()
		return nil, false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		cancel()
		return nil, true, shared.HTTPStatusError(resp.StatusCode, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		cancel()
		return nil, false, shared.HTTPStatusError(resp.StatusCode, target)
	}
	return newIdleTimeoutBody(resp.Body, a.cfg.timeout, cancel), false, nil
}

// idleTimeoutBody cancels its request when no bytes arrive for idle. Every
// successful read pushes the deadline forward.
type idleTimeoutBody struct {
	body   io.ReadCloser
	idle   time.Duration
	timer  *time.Timer
	cancel context.CancelFunc
}

func newIdleTimeoutBody(body io.ReadCloser, idle time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	return &idleTimeoutBody{
		body:   body,
		idle:   idle,
		timer:  time.AfterFunc(idle, cancel),
		cancel: cancel,
	}
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 {
		b.timer.Reset(b.idle)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel()
	return err
}

func (a MirrorSourceAdapter) openFile(target string) (io.ReadCloser, bool, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, false, err
	}
	file, err := a.fs.Open(parsed.Path)
	if err != nil {
		return nil, errors.Is(err, os.ErrNotExist), err
	}
	return file, false, nil
}

func expandMirror(mirror string, repository string, arch string) string {
	replacer := strings.NewReplacer("$repo", repository, "$arch", arch)
	return strings.TrimRight(replacer.Replace(mirror), "/")
}

func doRequest(ctx context.Context, client *http.Client, target string, cfg httpRetryConfig) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(ctx.Err())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create request").
				WithCause(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("request canceled").
					WithCause(ctx.Err())
			}
			lastErr = err
			if attempt < cfg.retries-1 {
				sleepContext(ctx, httpRetryDelay(attempt, cfg))
				continue
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request failed").
				WithCause(err)
		}
		if (resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests) && attempt < cfg.retries-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			sleepContext(ctx, httpRetryDelay(attempt, cfg))
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("request failed")
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("request failed").
		WithCause(lastErr)
}

func httpRetryDelay(attempt int, cfg httpRetryConfig) time.Duration {
	delay := cfg.baseDelay * time.Duration(1<<attempt)
	if delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func sleepContext(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

var _ ports.MirrorSource = MirrorSourceAdapter{}
