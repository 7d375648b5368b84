// Package extract maps a parsed document plus a static list of metric
// descriptors to metric values. Absent fields are not errors: they come
// back as the sentinel "N/A".
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/pkg/models"
)

// Sentinel marks a metric that was legitimately absent from the source
// document, distinguished from a parsing or network error.
const Sentinel = "N/A"

// ErrNoMatches reports that no configured descriptor matched anything in
// the document. The extraction result is all sentinels and the page's
// structure likely did not match expectations; callers should not
// persist the result.
var ErrNoMatches = errors.New("no descriptor matched the document")

// Extractor locates configured metrics inside fetched documents.
type Extractor struct {
	log zerolog.Logger
}

// New creates an Extractor.
func New(log zerolog.Logger) *Extractor {
	return &Extractor{log: log.With().Str("phase", "extract").Logger()}
}

// Extract resolves every descriptor against doc. For each descriptor the
// first element matching tag+attribute wins and its text is trimmed; a
// descriptor with no match yields the sentinel. A failure on one metric
// is absorbed and never aborts the rest. When every metric resolves to
// the sentinel, the full map is returned together with ErrNoMatches.
func (e *Extractor) Extract(doc *fetch.Document, descriptors []models.MetricDescriptor) (map[string]string, error) {
	values := make(map[string]string, len(descriptors))

	matched := 0
	for _, d := range descriptors {
		val, ok := e.extractOne(doc, d)
		values[d.Metric] = val
		if ok {
			matched++
		}
	}

	if matched == 0 {
		return values, fmt.Errorf("%w: %s", ErrNoMatches, doc.URL)
	}
	return values, nil
}

// extractOne resolves a single descriptor. ok is false when the value is
// the sentinel.
func (e *Extractor) extractOne(doc *fetch.Document, d models.MetricDescriptor) (string, bool) {
	if d.Tag == "" {
		e.log.Warn().Str("metric", d.Metric).Str("url", doc.URL).
			Msg("descriptor has no tag, substituting sentinel")
		return Sentinel, false
	}

	sel := d.Tag
	if d.AttrKey != "" {
		sel = fmt.Sprintf("%s[%s=%q]", d.Tag, d.AttrKey, d.AttrValue)
	}

	node := doc.Doc.Find(sel).First()
	if node.Length() == 0 {
		return Sentinel, false
	}

	text := strings.TrimSpace(node.Text())
	if text == "" {
		return Sentinel, false
	}
	return text, true
}

// Metrics converts an extraction result into persistable records, in
// descriptor order so output files stay stable across runs.
func Metrics(values map[string]string, descriptors []models.MetricDescriptor, sourceURL string) []models.ExtractedMetric {
	out := make([]models.ExtractedMetric, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, models.ExtractedMetric{
			Metric:    d.Metric,
			Value:     values[d.Metric],
			SourceURL: sourceURL,
		})
	}
	return out
}
