package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/pkg/models"
)

const samplePage = `<html><body>
<table>
  <tr><td data-test="MARKET_CAP-value">  2.98T </td></tr>
  <tr><td data-test="PE_RATIO-value">31.21</td></tr>
  <tr><td data-test="PE_RATIO-value">duplicate-should-lose</td></tr>
  <tr><td data-test="EPS_RATIO-value"></td></tr>
</table>
</body></html>`

func testDoc(t *testing.T, html string) *fetch.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return &fetch.Document{URL: "https://example.com/quote/TST", Doc: doc}
}

func sampleDescriptors() []models.MetricDescriptor {
	return []models.MetricDescriptor{
		{Metric: "MarketCap", Tag: "td", AttrKey: "data-test", AttrValue: "MARKET_CAP-value"},
		{Metric: "PERatio", Tag: "td", AttrKey: "data-test", AttrValue: "PE_RATIO-value"},
		{Metric: "EPS", Tag: "td", AttrKey: "data-test", AttrValue: "EPS_RATIO-value"},
		{Metric: "DividendYield", Tag: "td", AttrKey: "data-test", AttrValue: "DIV_YIELD-value"},
	}
}

func TestExtract(t *testing.T) {
	e := New(zerolog.Nop())
	values, err := e.Extract(testDoc(t, samplePage), sampleDescriptors())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := values["MarketCap"]; got != "2.98T" {
		t.Errorf("MarketCap = %q, want trimmed 2.98T", got)
	}
	// First match in document order wins.
	if got := values["PERatio"]; got != "31.21" {
		t.Errorf("PERatio = %q, want 31.21", got)
	}
	// Present but empty element counts as absent.
	if got := values["EPS"]; got != Sentinel {
		t.Errorf("EPS = %q, want sentinel", got)
	}
	// Missing element counts as absent, not an error.
	if got := values["DividendYield"]; got != Sentinel {
		t.Errorf("DividendYield = %q, want sentinel", got)
	}
}

func TestExtractAllSentinel(t *testing.T) {
	e := New(zerolog.Nop())
	descs := sampleDescriptors()
	values, err := e.Extract(testDoc(t, "<html><body><p>nothing here</p></body></html>"), descs)

	if !errors.Is(err, ErrNoMatches) {
		t.Fatalf("expected ErrNoMatches, got %v", err)
	}
	if len(values) != len(descs) {
		t.Fatalf("expected full sentinel map, got %d entries", len(values))
	}
	for metric, v := range values {
		if v != Sentinel {
			t.Errorf("%s = %q, want sentinel", metric, v)
		}
	}
}

func TestExtractBadDescriptorAbsorbed(t *testing.T) {
	e := New(zerolog.Nop())
	descs := []models.MetricDescriptor{
		{Metric: "Broken"}, // no tag configured
		{Metric: "MarketCap", Tag: "td", AttrKey: "data-test", AttrValue: "MARKET_CAP-value"},
	}
	values, err := e.Extract(testDoc(t, samplePage), descs)
	if err != nil {
		t.Fatalf("one bad descriptor must not abort extraction: %v", err)
	}
	if values["Broken"] != Sentinel {
		t.Errorf("Broken = %q, want sentinel", values["Broken"])
	}
	if values["MarketCap"] != "2.98T" {
		t.Errorf("MarketCap = %q, want 2.98T", values["MarketCap"])
	}
}

func TestMetricsOrder(t *testing.T) {
	descs := sampleDescriptors()
	values := map[string]string{
		"MarketCap": "2.98T", "PERatio": "31.21", "EPS": Sentinel, "DividendYield": Sentinel,
	}
	rows := Metrics(values, descs, "https://example.com/q")

	if len(rows) != len(descs) {
		t.Fatalf("got %d rows, want %d", len(rows), len(descs))
	}
	for i, d := range descs {
		if rows[i].Metric != d.Metric {
			t.Errorf("row %d metric = %s, want %s", i, rows[i].Metric, d.Metric)
		}
		if rows[i].SourceURL != "https://example.com/q" {
			t.Errorf("row %d missing source URL", i)
		}
	}
}
