// Package edgar is a thin client for bulk regulatory-filing download
// from SEC EDGAR. Filing lists come from EDGAR's browse Atom feed;
// documents are saved per ticker and accession number.
//
// SEC policy requires a descriptive User-Agent and caps clients at
// 10 requests/second; both are enforced here.
package edgar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/freddycharles/ecoscrape/pkg/models"
	"github.com/freddycharles/ecoscrape/pkg/utils"
)

const (
	browseURL        = "https://www.sec.gov/cgi-bin/browse-edgar"
	defaultUserAgent = "ecoscrape/1.0 (github.com/freddycharles/ecoscrape)"
)

// Client downloads filings from EDGAR.
type Client struct {
	http      *http.Client
	parser    *gofeed.Parser
	limiter   *rate.Limiter
	userAgent string
	browse    string
	log       zerolog.Logger
}

// NewClient creates an EDGAR client. userAgent should identify the
// operator per SEC policy; empty falls back to the project default.
func NewClient(userAgent string, log zerolog.Logger) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = userAgent

	return &Client{
		http:      httpClient,
		parser:    parser,
		limiter:   rate.NewLimiter(10, 1), // SEC cap
		userAgent: userAgent,
		browse:    browseURL,
		log:       log.With().Str("phase", "acquisition").Logger(),
	}
}

// RecentFilings lists the most recent filings of formType for a ticker
// or CIK, newest first, at most limit entries.
func (c *Client) RecentFilings(ctx context.Context, identifier, formType string, limit int) ([]models.Filing, error) {
	if limit <= 0 {
		limit = 3
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", identifier)
	q.Set("type", formType)
	q.Set("owner", "include")
	q.Set("count", fmt.Sprint(limit))
	q.Set("output", "atom")

	feed, err := c.parser.ParseURLWithContext(c.browse+"?"+q.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("edgar feed for %s: %w", identifier, err)
	}

	var filings []models.Filing
	for _, item := range feed.Items {
		if len(filings) >= limit {
			break
		}
		filings = append(filings, models.Filing{
			Ticker:      identifier,
			FormType:    itemFormType(item, formType),
			AccessionNo: accessionFromID(item.GUID),
			FiledAt:     filedDate(item),
			URL:         item.Link,
		})
	}
	if len(filings) == 0 {
		c.log.Info().Str("ticker", identifier).Str("form", formType).
			Msg("no filings found")
	}
	return filings, nil
}

// Download saves each filing's index document under
// dir/<ticker>/<accession>.html. A failure on one filing is logged and
// skipped; the error returned covers only a fully failed batch.
func (c *Client) Download(ctx context.Context, filings []models.Filing, dir string) (int, error) {
	saved := 0
	for _, f := range filings {
		if err := c.downloadOne(ctx, f, dir); err != nil {
			c.log.Error().Str("ticker", f.Ticker).Str("accession", f.AccessionNo).
				Err(err).Msg("filing download failed")
			continue
		}
		saved++
	}
	if saved == 0 && len(filings) > 0 {
		return 0, fmt.Errorf("all %d filing downloads failed", len(filings))
	}
	return saved, nil
}

func (c *Client) downloadOne(ctx context.Context, f models.Filing, dir string) error {
	if f.URL == "" {
		return fmt.Errorf("filing %s has no URL", f.AccessionNo)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", f.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.log.Warn().Str("ticker", f.Ticker).Str("url", f.URL).
				Msg("rate limiting encountered")
		}
		return fmt.Errorf("get %s: HTTP %d", f.URL, resp.StatusCode)
	}

	target := filepath.Join(dir, utils.SanitizeFilename(f.Ticker))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	name := utils.SanitizeFilename(f.AccessionNo)
	if name == "unnamed" {
		name = utils.SanitizeFilename(f.FiledAt + "_" + f.FormType)
	}
	out, err := os.Create(filepath.Join(target, name+".html"))
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("save %s: %w", f.AccessionNo, err)
	}
	return nil
}

// LoadIdentifiers reads a tickers file, one identifier per line, blank
// lines and surrounding whitespace ignored. An empty result is an error:
// a run with no targets is a misconfiguration, not a no-op.
func LoadIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identifiers file %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers file %s: %w", path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("identifiers file %s is empty", path)
	}
	return ids, nil
}

// accessionFromID pulls the accession number out of an Atom entry id of
// the form "urn:tag:sec.gov,2008:accession-number=0000320193-23-000106".
func accessionFromID(id string) string {
	const marker = "accession-number="
	if i := strings.LastIndex(id, marker); i >= 0 {
		return id[i+len(marker):]
	}
	return id
}

func itemFormType(item *gofeed.Item, fallback string) string {
	if len(item.Categories) > 0 && item.Categories[0] != "" {
		return item.Categories[0]
	}
	return fallback
}

// filedDate extracts the YYYY-MM-DD filing date from the entry.
func filedDate(item *gofeed.Item) string {
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Format("2006-01-02")
	}
	if len(item.Updated) >= 10 {
		return item.Updated[:10]
	}
	return ""
}
