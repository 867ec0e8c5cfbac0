// Package ingestion admits publication records into the canonical store.
package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/metrics"
	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/pkg/logger"
)

type Store interface {
	InsertPublication(pub *models.Publication) error
}

// Incoming is one record as submitted by the bulk load endpoint.
type Incoming struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Authors  string `json:"authors"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// LoadResult reports how a bulk load went. Invalid records are skipped,
// never fatal.
type LoadResult struct {
	Loaded  int      `json:"loaded"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

type Loader struct {
	store Store
}

func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Load validates and stores a batch. Records missing a title, URL or
// abstract are rejected. Abstracts scraped from publisher pages often
// carry markup, so they are reduced to plain text first.
func (l *Loader) Load(records []Incoming) *LoadResult {
	result := &LoadResult{}

	for i, rec := range records {
		pub, err := l.admit(rec)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}

		if err := l.store.InsertPublication(pub); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			logger.Error("Failed to store publication",
				zap.String("title", rec.Title),
				zap.Error(err),
			)
			continue
		}

		result.Loaded++
		metrics.PublicationsLoaded.Inc()
	}

	logger.Info("Bulk load finished",
		zap.Int("loaded", result.Loaded),
		zap.Int("skipped", result.Skipped),
	)

	return result
}

func (l *Loader) admit(rec Incoming) (*models.Publication, error) {
	title := strings.TrimSpace(rec.Title)
	url := strings.TrimSpace(rec.URL)
	abstract := StripHTML(rec.Abstract)

	if title == "" {
		return nil, fmt.Errorf("missing title")
	}
	if url == "" {
		return nil, fmt.Errorf("missing url")
	}
	if abstract == "" {
		return nil, fmt.Errorf("missing abstract")
	}

	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = uuid.New().String()
	}

	return &models.Publication{
		ID:        id,
		Title:     title,
		Abstract:  abstract,
		Authors:   strings.TrimSpace(rec.Authors),
		Summary:   strings.TrimSpace(rec.Summary),
		URL:       url,
		CreatedAt: time.Now(),
	}, nil
}

// StripHTML reduces markup to whitespace-normalized text. Input without
// tags passes through unchanged apart from trimming.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
