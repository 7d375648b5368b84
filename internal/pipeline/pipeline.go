// Package pipeline drives the acquisition path: for each company in the
// catalog, resolve a financial page, fetch it, extract metrics, and
// append them to the record store. One company failing never aborts the
// batch; whether the batch as a whole counts as a success is a policy
// knob.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freddycharles/ecoscrape/internal/catalog"
	"github.com/freddycharles/ecoscrape/internal/extract"
	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/internal/resolve"
	"github.com/freddycharles/ecoscrape/internal/store"
	"github.com/freddycharles/ecoscrape/pkg/models"
)

// ErrBatchFailed reports that the run fell below the configured success
// policy.
var ErrBatchFailed = errors.New("acquisition batch failed")

// Options tunes a run.
type Options struct {
	// Concurrency bounds the worker pool. 1 (the default) keeps the
	// polite sequential baseline: one outstanding network call at a time.
	Concurrency int
	// MinSuccessRatio is the fraction of companies that must succeed for
	// the run to count as a success. 0 keeps the historical policy: fail
	// only when every company failed.
	MinSuccessRatio float64
	// Descriptors is the static metric configuration shared by all
	// extractions.
	Descriptors []models.MetricDescriptor
}

// Outcome is one company's result. Phase is empty on success.
type Outcome struct {
	Company string
	URL     string
	Phase   string // resolve, fetch, extract, or store
	Err     error
}

// Failed reports whether this company's acquisition failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Report summarizes a run.
type Report struct {
	Outcomes  []Outcome
	Total     int
	Succeeded int
	Failed    int
}

// Pipeline wires the acquisition components together.
type Pipeline struct {
	catalog   catalog.Catalog
	resolver  *resolve.Resolver
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	store     *store.Store
	opts      Options
	log       zerolog.Logger
}

// New creates a Pipeline.
func New(cat catalog.Catalog, res *resolve.Resolver, f *fetch.Fetcher,
	ex *extract.Extractor, st *store.Store, opts Options, log zerolog.Logger) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		catalog:   cat,
		resolver:  res,
		fetcher:   f,
		extractor: ex,
		store:     st,
		opts:      opts,
		log:       log.With().Str("phase", "acquisition").Logger(),
	}
}

// Run processes every company in the catalog. Catalog enumeration
// failure is a whole-run error; per-company failures are recorded in the
// report and the batch continues. Companies may complete out of order
// under concurrency; the report preserves catalog order regardless.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	companies, err := p.catalog.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog enumeration: %w", err)
	}

	outcomes := make([]Outcome, len(companies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, company := range companies {
		i, company := i, company
		g.Go(func() error {
			outcomes[i] = p.process(gctx, company)
			return nil
		})
	}
	g.Wait()

	report := &Report{Outcomes: outcomes, Total: len(companies)}
	for _, o := range outcomes {
		if o.Failed() {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	p.log.Info().Int("total", report.Total).Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).Msg("acquisition completed")

	if report.Total > 0 && report.Succeeded == 0 {
		return report, fmt.Errorf("%w: all %d companies failed", ErrBatchFailed, report.Total)
	}
	if ratio := float64(report.Succeeded) / float64(max(report.Total, 1)); ratio < p.opts.MinSuccessRatio {
		return report, fmt.Errorf("%w: success ratio %.2f below required %.2f",
			ErrBatchFailed, ratio, p.opts.MinSuccessRatio)
	}
	return report, nil
}

// process runs one company through resolve → fetch → extract → store.
func (p *Pipeline) process(ctx context.Context, company models.CompanyRecord) Outcome {
	out := Outcome{Company: company.Name}

	u, err := p.resolver.Resolve(ctx, company)
	if err != nil {
		return p.fail(out, "resolve", err)
	}
	out.URL = u

	doc, err := p.fetcher.Fetch(ctx, u)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && fe.Status == 429 {
			p.log.Warn().Str("company", company.Name).Str("url", u).
				Msg("rate limiting encountered")
		}
		return p.fail(out, "fetch", err)
	}

	values, err := p.extractor.Extract(doc, p.opts.Descriptors)
	if err != nil {
		// All sentinels: the page's structure did not match
		// expectations. Nothing is persisted.
		return p.fail(out, "extract", err)
	}

	metrics := extract.Metrics(values, p.opts.Descriptors, doc.URL)
	if err := p.store.Append(company.Name, metrics); err != nil {
		return p.fail(out, "store", err)
	}

	p.log.Info().Str("company", company.Name).Str("url", doc.URL).
		Int("metrics", len(metrics)).Msg("company acquired")
	return out
}

func (p *Pipeline) fail(out Outcome, phase string, err error) Outcome {
	out.Phase = phase
	out.Err = err
	p.log.Error().Str("company", out.Company).Str("step", phase).Err(err).
		Msg("company acquisition failed")
	return out
}
