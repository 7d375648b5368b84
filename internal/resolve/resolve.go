// Package resolve finds a company's financial-data page through a ranked
// list of independent heuristics. Strategies run in fixed priority order
// and the first success short-circuits the rest; exhausting them all is a
// normal NotFound outcome, not a fatal error.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/internal/infra"
	"github.com/freddycharles/ecoscrape/pkg/models"
	"github.com/freddycharles/ecoscrape/pkg/utils"
)

// ErrNoResult is returned by a strategy that ran cleanly but found
// nothing; the resolver moves on to the next strategy.
var ErrNoResult = errors.New("strategy found no result")

// ErrNotFound is the resolver's terminal outcome after every strategy
// has been exhausted.
var ErrNotFound = errors.New("no financial page found for company")

// DefaultFinancePatterns are the URL substrings recognized as
// financial-data pages.
var DefaultFinancePatterns = []string{
	"finance.yahoo.com/quote/",
	"stockanalysis.com/stocks/",
}

// searchBaseURL is the HTML (non-JS) endpoint of the search surface.
const searchBaseURL = "https://html.duckduckgo.com/html/"

// Strategy is one heuristic for resolving a company to a URL.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// TryResolve returns a URL, ErrNoResult for a clean miss, or any
	// other error for a degraded attempt.
	TryResolve(ctx context.Context, company models.CompanyRecord) (string, error)
}

// Resolver runs strategies in priority order.
type Resolver struct {
	strategies []Strategy
	cache      *infra.Cache
	log        zerolog.Logger
}

// New creates a Resolver with the default strategy order: search surface
// first, then the company's reference page.
func New(fetcher *fetch.Fetcher, patterns []string, log zerolog.Logger) *Resolver {
	if len(patterns) == 0 {
		patterns = DefaultFinancePatterns
	}
	return NewWithStrategies(log,
		&SearchStrategy{Fetcher: fetcher, Patterns: patterns},
		&ReferencePageStrategy{Fetcher: fetcher, Patterns: patterns},
	)
}

// NewWithStrategies creates a Resolver with an explicit strategy list.
// Order is priority order.
func NewWithStrategies(log zerolog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		cache:      infra.NewCache(1 * time.Hour),
		log:        log.With().Str("phase", "resolve").Logger(),
	}
}

// Resolve returns at most one URL for the company. A strategy's network
// failure degrades that strategy only; the next one still runs.
func (r *Resolver) Resolve(ctx context.Context, company models.CompanyRecord) (string, error) {
	key := utils.NormalizeName(company.Name)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(string), nil
	}

	for _, s := range r.strategies {
		u, err := s.TryResolve(ctx, company)
		switch {
		case err == nil:
			r.log.Debug().Str("company", company.Name).Str("strategy", s.Name()).
				Str("url", u).Msg("resolved")
			r.cache.Set(key, u)
			return u, nil
		case errors.Is(err, ErrNoResult):
			r.log.Debug().Str("company", company.Name).Str("strategy", s.Name()).
				Msg("no result")
		default:
			r.log.Warn().Str("company", company.Name).Str("strategy", s.Name()).
				Err(err).Msg("strategy degraded")
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, company.Name)
}

// --- Search surface strategy ---

// SearchStrategy queries an external search surface and returns the first
// result link matching a finance-domain pattern.
type SearchStrategy struct {
	Fetcher  *fetch.Fetcher
	Patterns []string
	BaseURL  string // defaults to the DuckDuckGo HTML endpoint
}

// Name identifies the strategy in logs.
func (s *SearchStrategy) Name() string { return "search" }

// TryResolve queries "<company> stock financials" and scans result links.
func (s *SearchStrategy) TryResolve(ctx context.Context, company models.CompanyRecord) (string, error) {
	base := s.BaseURL
	if base == "" {
		base = searchBaseURL
	}
	query := url.QueryEscape(company.Name + " stock financials")

	doc, err := s.Fetcher.Fetch(ctx, base+"?q="+query)
	if err != nil {
		return "", fmt.Errorf("search query: %w", err)
	}

	if link, ok := firstMatchingLink(doc, s.Patterns); ok {
		return link, nil
	}
	return "", ErrNoResult
}

// --- Reference page strategy ---

// ReferencePageStrategy fetches the company's reference page, when the
// catalog supplied one, and scans outbound links in document order.
type ReferencePageStrategy struct {
	Fetcher  *fetch.Fetcher
	Patterns []string
}

// Name identifies the strategy in logs.
func (s *ReferencePageStrategy) Name() string { return "reference_page" }

// TryResolve scans the reference page for the first finance-domain link.
func (s *ReferencePageStrategy) TryResolve(ctx context.Context, company models.CompanyRecord) (string, error) {
	if company.ReferenceURL == "" {
		return "", ErrNoResult
	}

	doc, err := s.Fetcher.Fetch(ctx, company.ReferenceURL)
	if err != nil {
		return "", fmt.Errorf("reference page: %w", err)
	}

	if link, ok := firstMatchingLink(doc, s.Patterns); ok {
		return link, nil
	}
	return "", ErrNoResult
}

// firstMatchingLink scans anchors in document order and returns the first
// href matching any pattern. Search surfaces often wrap outbound links in
// a redirect with the target in a "uddg" query parameter; those are
// unwrapped before matching.
func firstMatchingLink(doc *fetch.Document, patterns []string) (string, bool) {
	base, _ := url.Parse(doc.URL)

	var found string
	doc.Doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		link := unwrapRedirect(href)
		if link == "" {
			return true
		}
		if u, err := url.Parse(link); err == nil && base != nil {
			link = base.ResolveReference(u).String()
		}
		for _, p := range patterns {
			if strings.Contains(link, p) {
				found = link
				return false
			}
		}
		return true
	})
	return found, found != ""
}

// unwrapRedirect extracts the real target from a search-surface redirect
// link, or returns the href unchanged.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
