// Package fetch issues single HTTP requests with a bounded timeout and
// classifies outcomes into a small failure taxonomy, so callers can tell
// bad input from transient network trouble from remote refusals.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/internal/infra"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is a browser-like user agent; several financial sites
// refuse requests without one.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Kind classifies a fetch failure.
type Kind int

const (
	KindInvalid    Kind = iota // malformed URL, no network call made
	KindTimeout                // request exceeded the fixed timeout
	KindConnection             // DNS or connection-level failure
	KindHTTPStatus             // non-2xx response, Status carries the code
	KindOther                  // anything else (body read, parse, cancel)
)

// String returns a short tag for log fields.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindHTTPStatus:
		return "http_status"
	default:
		return "other"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind   Kind
	URL    string
	Status int // HTTP status code, set for KindHTTPStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether a later run may succeed without any change
// on our side.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindConnection
}

// Document is a fetched, parsed page. URL is the final URL after
// redirects, used as the provenance recorded with extracted metrics.
type Document struct {
	URL string
	Doc *goquery.Document
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Limiter   *infra.HostLimiter // optional per-host politeness
}

// Fetcher performs one bounded GET at a time.
type Fetcher struct {
	client    *http.Client
	limiter   *infra.HostLimiter
	userAgent string
	log       zerolog.Logger
}

// New creates a Fetcher.
func New(opts Options, log zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   opts.Limiter,
		userAgent: opts.UserAgent,
		log:       log.With().Str("phase", "fetch").Logger(),
	}
}

// Fetch GETs rawURL and parses the body. The URL must carry both a scheme
// and a host; otherwise KindInvalid is returned without touching the
// network. Non-2xx responses come back as KindHTTPStatus with the code
// intact so callers can recognize rate-limit signals like 429.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{Kind: KindInvalid, URL: rawURL, Err: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Host); err != nil {
			return nil, &Error{Kind: KindOther, URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindOther, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		fe := classify(rawURL, err)
		f.log.Debug().Str("url", rawURL).Str("kind", fe.Kind.String()).Err(err).Msg("request failed")
		return nil, fe
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: KindHTTPStatus, URL: rawURL, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindOther, URL: rawURL, Err: err}
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Document{URL: final, Doc: doc}, nil
}

// classify maps a transport error onto the taxonomy.
func classify(rawURL string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return &Error{Kind: KindConnection, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindOther, URL: rawURL, Err: err}
}
