// Package catalog enumerates the companies targeted by one batch run,
// either by scraping an HTML index page or from a single explicit
// company+URL pair supplied at invocation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/pkg/models"
	"github.com/freddycharles/ecoscrape/pkg/utils"
)

// ErrEmptyCatalog reports an index page that yielded no companies. With
// no fallback this is a whole-run failure.
var ErrEmptyCatalog = errors.New("catalog yielded no companies")

// Catalog enumerates target companies for a run.
type Catalog interface {
	Companies(ctx context.Context) ([]models.CompanyRecord, error)
}

// --- Static single-pair catalog ---

// StaticCatalog wraps the single (companyName, url) invocation pair.
type StaticCatalog struct {
	Name string
	URL  string
}

// Companies returns the single configured record.
func (s *StaticCatalog) Companies(ctx context.Context) ([]models.CompanyRecord, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, errors.New("company name is required")
	}
	return []models.CompanyRecord{{Name: s.Name, ReferenceURL: s.URL}}, nil
}

// --- HTML table catalog ---

// TableCatalog scrapes a public index page's table of companies. The
// first cell of each row is the company name; the first link in the row,
// when present, becomes the reference URL.
type TableCatalog struct {
	fetcher  *fetch.Fetcher
	indexURL string
	log      zerolog.Logger
}

// NewTableCatalog creates a catalog over the given index page.
func NewTableCatalog(fetcher *fetch.Fetcher, indexURL string, log zerolog.Logger) *TableCatalog {
	return &TableCatalog{
		fetcher:  fetcher,
		indexURL: indexURL,
		log:      log.With().Str("phase", "catalog").Logger(),
	}
}

// Companies fetches and parses the index page. Row order is preserved;
// duplicate names keep their first occurrence so each name is unique
// within the snapshot.
func (c *TableCatalog) Companies(ctx context.Context) ([]models.CompanyRecord, error) {
	doc, err := c.fetcher.Fetch(ctx, c.indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetch index page: %w", err)
	}

	base, _ := url.Parse(doc.URL)

	var records []models.CompanyRecord
	seen := make(map[string]bool)

	doc.Doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header or spacer row
		}

		name := strings.TrimSpace(cells.First().Text())
		if name == "" {
			return
		}
		key := utils.NormalizeName(name)
		if seen[key] {
			c.log.Debug().Str("company", name).Msg("duplicate row skipped")
			return
		}
		seen[key] = true

		ref := ""
		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			if u, err := url.Parse(href); err == nil && base != nil {
				ref = base.ResolveReference(u).String()
			}
		}

		records = append(records, models.CompanyRecord{Name: name, ReferenceURL: ref})
	})

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, c.indexURL)
	}

	c.log.Info().Int("companies", len(records)).Str("url", c.indexURL).Msg("catalog loaded")
	return records, nil
}
