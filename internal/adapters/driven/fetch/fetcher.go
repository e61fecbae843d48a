// Package fetch downloads remote documents over HTTP(S) with SSRF
// protection: every target address, including each redirect hop, is
// validated against the address policy before any socket connect, and
// bodies are streamed under a hard byte cap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/folio-labs/folio-mcp/internal/core/domain"
	"github.com/folio-labs/folio-mcp/internal/core/ports/driven"
	"github.com/folio-labs/folio-mcp/internal/logger"
)

// readChunkSize is the streaming read granularity for downloads.
const readChunkSize = 32 * 1024

// Options configures a Fetcher. The zero value gets sane defaults.
type Options struct {
	// Timeout bounds a single hop (connect plus body read). Default 60s.
	Timeout time.Duration

	// MaxRedirects caps the redirect chain. Default domain.MaxRedirects.
	MaxRedirects int

	// RequestsPerSecond is the sustained outbound request rate. Default 4.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size. Default 4.
	Burst int

	// Resolver resolves hostnames for the pre-connect address check.
	// Default is the system resolver.
	Resolver Resolver

	// DialContext overrides the transport dialer. Tests use this to route
	// connections to a local server while the Resolver lies about DNS.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// AllowPrivate disables the address policy. Only for tests that need
	// to talk to a loopback server.
	AllowPrivate bool
}

// Fetcher is the SSRF-hardened HTTP downloader.
type Fetcher struct {
	client       *http.Client
	guard        *guard
	limiter      *rate.Limiter
	timeout      time.Duration
	maxRedirects int
}

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = domain.MaxRedirects
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 4
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.Resolver == nil {
		opts.Resolver = DefaultResolver
	}

	g := &guard{resolve: opts.Resolver, allowPrivate: opts.AllowPrivate}

	dial := opts.DialContext
	if dial == nil {
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			// Re-check the concrete address the transport resolved to.
			// The pre-connect DNS check alone leaves a rebinding window.
			if err := g.checkDialAddr(addr); err != nil {
				return nil, err
			}
			return dialer.DialContext(ctx, network, addr)
		}
	}

	transport := &http.Transport{
		DialContext:           dial,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			// Redirects are followed manually so every hop can be
			// re-validated before the connect.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		guard:        g,
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		timeout:      opts.Timeout,
		maxRedirects: opts.MaxRedirects,
	}
}

// Fetch downloads url, following at most maxRedirects redirects and
// reading at most maxBytes of body. Each hop's target addresses are
// validated before the request is issued.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxBytes int64) (*driven.FetchResult, error) {
	if maxBytes <= 0 {
		maxBytes = domain.DefaultMaxDownloadBytes
	}

	current := rawURL
	for hop := 0; hop <= f.maxRedirects; hop++ {
		u, err := f.guard.checkURL(ctx, current)
		if err != nil {
			return nil, err
		}

		result, redirect, err := f.doHop(ctx, u, maxBytes)
		if err != nil {
			return nil, err
		}
		if redirect != "" {
			logger.Debug("fetch: redirect hop %d -> %s", hop+1, redirect)
			current = redirect
			continue
		}

		result.FinalURL = current
		return result, nil
	}

	return nil, fmt.Errorf("%w (max %d)", domain.ErrTooManyRedirects, f.maxRedirects)
}

// doHop issues a single request. It returns either a completed result or
// a non-empty redirect target.
func (f *Fetcher) doHop(ctx context.Context, u *url.URL, maxBytes int64) (*driven.FetchResult, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrFetchTimeout, err)
	}

	hopCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hopCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: building request", domain.ErrInvalidReference)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if isRedirect(resp.StatusCode) {
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, "", fmt.Errorf("%w: redirect with no target", domain.ErrUnreachable)
		}
		target, err := u.Parse(loc)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad redirect target", domain.ErrUnreachable)
		}
		return nil, target.String(), nil
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fmt.Errorf("%w: %s", domain.ErrNotFound, u.Redacted())
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", fmt.Errorf("%w: server returned %d", domain.ErrUnreachable, resp.StatusCode)
	}

	// Reject early when the server is honest about an oversized body.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxBytes {
			return nil, "", fmt.Errorf("%w: %d bytes advertised (max %d)", domain.ErrTooLarge, n, maxBytes)
		}
	}

	body, err := readCapped(resp.Body, maxBytes)
	if err != nil {
		return nil, "", err
	}

	return &driven.FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now().UTC(),
	}, "", nil
}

// readCapped streams r in fixed-size chunks with a running total and
// aborts the instant the cap is exceeded. Memory stays bounded no
// matter what the server sends.
func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	var (
		body  = make([]byte, 0, readChunkSize)
		chunk = make([]byte, readChunkSize)
		total int64
	)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return nil, fmt.Errorf("%w: download exceeded %d bytes", domain.ErrTooLarge, maxBytes)
			}
			body = append(body, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return body, nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: reading body", domain.ErrFetchTimeout)
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, fmt.Errorf("%w: reading body", domain.ErrFetchTimeout)
			}
			return nil, fmt.Errorf("%w: reading body: %v", domain.ErrUnreachable, err)
		}
	}
}

func classifyTransportErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrBlockedAddress):
		return fmt.Errorf("%w", domain.ErrBlockedAddress)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: no response from server", domain.ErrFetchTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: no response from server", domain.ErrFetchTimeout)
	}
	return fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
