package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/internal/fetch"
	"github.com/freddycharles/ecoscrape/pkg/models"
)

// fakeStrategy returns a fixed outcome and records invocations.
type fakeStrategy struct {
	name   string
	url    string
	err    error
	called int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) TryResolve(ctx context.Context, company models.CompanyRecord) (string, error) {
	f.called++
	return f.url, f.err
}

func TestResolveFirstSuccessShortCircuits(t *testing.T) {
	first := &fakeStrategy{name: "first", url: "https://finance.yahoo.com/quote/AAA"}
	second := &fakeStrategy{name: "second", url: "https://finance.yahoo.com/quote/BBB"}
	r := NewWithStrategies(zerolog.Nop(), first, second)

	got, err := r.Resolve(context.Background(), models.CompanyRecord{Name: "Alpha"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != first.url {
		t.Errorf("got %q, want first strategy's url", got)
	}
	if second.called != 0 {
		t.Error("second strategy should not run after first succeeds")
	}
}

func TestResolveDegradedStrategyFallsThrough(t *testing.T) {
	failing := &fakeStrategy{name: "failing", err: fmt.Errorf("search query: %w", errors.New("boom"))}
	backup := &fakeStrategy{name: "backup", url: "https://stockanalysis.com/stocks/bbb/"}
	r := NewWithStrategies(zerolog.Nop(), failing, backup)

	got, err := r.Resolve(context.Background(), models.CompanyRecord{Name: "Beta"})
	if err != nil {
		t.Fatalf("a degraded strategy must not abort the resolver: %v", err)
	}
	if got != backup.url {
		t.Errorf("got %q, want backup url", got)
	}
}

func TestResolveExhaustionIsNotFound(t *testing.T) {
	r := NewWithStrategies(zerolog.Nop(),
		&fakeStrategy{name: "a", err: ErrNoResult},
		&fakeStrategy{name: "b", err: errors.New("network down")},
	)

	_, err := r.Resolve(context.Background(), models.CompanyRecord{Name: "Gamma"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveDeterministic(t *testing.T) {
	mk := func() *Resolver {
		return NewWithStrategies(zerolog.Nop(),
			&fakeStrategy{name: "a", err: ErrNoResult},
			&fakeStrategy{name: "b", url: "https://finance.yahoo.com/quote/DET"},
		)
	}
	want, err := mk().Resolve(context.Background(), models.CompanyRecord{Name: "Delta"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := mk().Resolve(context.Background(), models.CompanyRecord{Name: "Delta"})
		if err != nil || got != want {
			t.Fatalf("run %d: got %q err %v, want %q", i, got, err, want)
		}
	}
}

func TestResolveCachesWithinRun(t *testing.T) {
	s := &fakeStrategy{name: "a", url: "https://finance.yahoo.com/quote/CCH"}
	r := NewWithStrategies(zerolog.Nop(), s)

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background(), models.CompanyRecord{Name: "Cached Co"}); err != nil {
			t.Fatal(err)
		}
	}
	if s.called != 1 {
		t.Errorf("strategy ran %d times, want 1 (cached)", s.called)
	}
}

func TestSearchStrategy(t *testing.T) {
	page := `<html><body>
	  <a href="https://example.com/not-finance">miss</a>
	  <a href="//duckduckgo.com/l/?uddg=https%3A%2F%2Ffinance.yahoo.com%2Fquote%2FAAPL%2F&rut=x">Apple</a>
	  <a href="https://finance.yahoo.com/quote/MSFT/">late</a>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			t.Error("expected a q parameter")
		}
		w.Write([]byte(page))
	}))
	defer srv.Close()

	s := &SearchStrategy{
		Fetcher:  fetch.New(fetch.Options{}, zerolog.Nop()),
		Patterns: DefaultFinancePatterns,
		BaseURL:  srv.URL,
	}
	got, err := s.TryResolve(context.Background(), models.CompanyRecord{Name: "Apple Inc."})
	if err != nil {
		t.Fatalf("TryResolve: %v", err)
	}
	if got != "https://finance.yahoo.com/quote/AAPL/" {
		t.Errorf("got %q, want unwrapped first match", got)
	}
}

func TestReferencePageStrategy(t *testing.T) {
	page := `<html><body>
	  <a href="/about">about</a>
	  <a href="https://stockanalysis.com/stocks/tst/">financials</a>
	  <a href="https://finance.yahoo.com/quote/TST/">second match loses</a>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	s := &ReferencePageStrategy{
		Fetcher:  fetch.New(fetch.Options{}, zerolog.Nop()),
		Patterns: DefaultFinancePatterns,
	}

	// No reference URL: clean miss.
	if _, err := s.TryResolve(context.Background(), models.CompanyRecord{Name: "NoRef"}); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult without a reference URL, got %v", err)
	}

	got, err := s.TryResolve(context.Background(), models.CompanyRecord{Name: "Test", ReferenceURL: srv.URL})
	if err != nil {
		t.Fatalf("TryResolve: %v", err)
	}
	if got != "https://stockanalysis.com/stocks/tst/" {
		t.Errorf("got %q, want first match in document order", got)
	}
}
