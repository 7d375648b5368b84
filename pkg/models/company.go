package models

// CompanyRecord identifies one target company within a catalog snapshot.
// It lives for a single run: produced by the catalog, consumed by the
// resolver and fetcher, never persisted.
type CompanyRecord struct {
	Name         string `json:"name"`          // unique within a snapshot
	ReferenceURL string `json:"reference_url"` // optional hint page
}

// MetricDescriptor describes where one metric lives in a source document.
// Descriptors are static configuration shared across all extractions.
type MetricDescriptor struct {
	Metric    string `json:"metric"     mapstructure:"metric"`
	Tag       string `json:"tag"        mapstructure:"tag"`
	AttrKey   string `json:"attr_key"   mapstructure:"attr_key"`
	AttrValue string `json:"attr_value" mapstructure:"attr_value"`
}

// ExtractedMetric is one scraped value. Value holds the sentinel "N/A"
// when the field was legitimately absent from the document.
type ExtractedMetric struct {
	Metric    string `json:"metric"`
	Value     string `json:"value"`
	SourceURL string `json:"source_url"`
}

// Filing is one regulatory filing entry from the EDGAR browse feed.
type Filing struct {
	Ticker      string `json:"ticker"`
	FormType    string `json:"form_type"`
	AccessionNo string `json:"accession_no"`
	FiledAt     string `json:"filed_at"` // YYYY-MM-DD
	URL         string `json:"url"`      // filing index page
}
