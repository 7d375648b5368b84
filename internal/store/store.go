// Package store persists extracted metrics as per-company delimited
// files. Files are strictly append-only: prior rows are never lost and
// the header is written exactly once per file lifetime.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freddycharles/ecoscrape/pkg/models"
	"github.com/freddycharles/ecoscrape/pkg/utils"
)

// Header is the per-company metrics file header.
var Header = []string{"Metric", "Value", "Source URL"}

// Store appends metric rows under a data directory.
type Store struct {
	dir string
	log zerolog.Logger

	mu sync.Mutex // serializes the header check with the append
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{
		dir: dir,
		log: log.With().Str("phase", "store").Logger(),
	}, nil
}

// Path returns the metrics file path for a company.
func (s *Store) Path(company string) string {
	return filepath.Join(s.dir, utils.SanitizeFilename(company)+"_metrics.csv")
}

// Append writes the metric rows for a company. The header is emitted only
// when the file does not exist yet, so the once-per-lifetime rule holds
// across separate process invocations. Repeated runs append duplicate
// rows on purpose; each row's source URL and a later run date keep them
// distinguishable downstream. Appends are serialized: two companies whose
// sanitized names collide on the same file must not both observe it as
// missing and write two headers.
func (s *Store) Append(company string, metrics []models.ExtractedMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(company)

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)
	if statErr != nil && !writeHeader {
		return fmt.Errorf("stat %s: %w", path, statErr)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header %s: %w", path, err)
		}
	}
	for _, m := range metrics {
		if err := w.Write([]string{m.Metric, m.Value, m.SourceURL}); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	s.log.Debug().Str("company", company).Int("rows", len(metrics)).
		Str("file", path).Msg("metrics appended")
	return nil
}
