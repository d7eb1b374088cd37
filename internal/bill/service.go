package bill

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/bill-extractor/internal/layout"
	"github.com/zombor/bill-extractor/internal/scanning"
)

// IDGenerator generates unique IDs for extractions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// DefaultPageWorkers bounds how many pages of one document are extracted at once
const DefaultPageWorkers = 4

// Service fetches or accepts bill documents, OCRs them and extracts line items
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	fetcher     Fetcher
	extractor   *layout.Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
	pageWorkers int
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage, fetcher Fetcher, extractor *layout.Extractor, pageWorkers int) *Service {
	return NewServiceWithDeps(db, scanner, storage, fetcher, extractor, pageWorkers, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, fetcher Fetcher, extractor *layout.Extractor, pageWorkers int, idGen IDGenerator, timeSrc TimeSource) *Service {
	if pageWorkers < 1 {
		pageWorkers = DefaultPageWorkers
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		fetcher:     fetcher,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
		pageWorkers: pageWorkers,
	}
}

var (
	reUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reExtension   = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,5}$`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	if !reExtension.MatchString(ext) {
		ext = ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	base = reUnsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(reSpaces.ReplaceAllString(base, " "))

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "bill"
	}
	return base + strings.ToLower(ext)
}

// filenameFromURL takes the last path segment of a document URL
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// ExtractFromURL downloads a document and extracts its line items
func (s *Service) ExtractFromURL(ctx context.Context, documentURL string) (*Extraction, error) {
	data, contentType, err := s.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		slog.Error("Failed to fetch document", "url", documentURL, "error", err)
		return nil, fmt.Errorf("fetching document: %w", err)
	}
	return s.process(ctx, documentURL, filenameFromURL(documentURL), data, contentType)
}

// ExtractUpload extracts the line items of an uploaded document
func (s *Service) ExtractUpload(ctx context.Context, filename string, data []byte, contentType string) (*Extraction, error) {
	return s.process(ctx, SourceUpload, filename, data, contentType)
}

func (s *Service) process(ctx context.Context, source, filename string, data []byte, contentType string) (*Extraction, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	pages, err := s.scanner.ScanPages(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan document",
			"source", source,
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeFile(savedPath)
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	results, failures, err := s.extractPages(ctx, id, pages)
	if err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("extracting pages: %w", err)
	}

	extraction := &Extraction{
		ID:          id,
		Source:      source,
		Filename:    savedPath,
		ContentType: contentType,
		Result:      NewData(results),
		PagesFailed: failures,
		CreatedAt:   now,
	}

	if err := s.db.SaveExtraction(extraction); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving extraction to database: %w", err)
	}

	slog.Info("Extracted bill",
		"id", id,
		"source", source,
		"pages", len(pages),
		"items", extraction.Result.TotalItemCount,
		"amount", extraction.Result.ReconciledAmount,
	)
	return extraction, nil
}

// extractPages runs the layout pipeline over every page concurrently.
// Results keep page order whatever order the workers finish in.
func (s *Service) extractPages(ctx context.Context, id string, pages []scanning.Page) ([]layout.PageResult, []PageFailure, error) {
	results := make([]layout.PageResult, len(pages))
	reports := make([]layout.PageReport, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pageWorkers)
	for i, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], reports[i] = s.extractor.ExtractPage(strconv.Itoa(p.Number), p.Layout())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failures []PageFailure
	for i, report := range reports {
		pageNo := results[i].PageNo
		logReport(id, pageNo, report)
		if report.Failure != nil {
			failures = append(failures, PageFailure{PageNo: pageNo, Reason: report.Failure.Error()})
		}
	}
	return results, failures, nil
}

func logReport(id, pageNo string, report layout.PageReport) {
	if report.Failure != nil {
		slog.Warn("Page yielded no items", "id", id, "page", pageNo, "error", report.Failure)
		return
	}
	for _, d := range report.Dropped {
		slog.Debug("Dropped row",
			"id", id,
			"page", pageNo,
			"row", d.Row,
			"text", report.Rows[d.Row].Text(),
			"reason", d.Reason,
		)
	}
	for _, m := range report.Mismatch {
		slog.Info("Amount does not match quantity times rate",
			"id", id,
			"page", pageNo,
			"row", m.Row,
			"expected", m.Expected,
			"actual", m.Actual,
		)
	}
}

func (s *Service) removeFile(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete file", "filename", name, "error", err)
	}
}

// GetExtraction retrieves an extraction by ID
func (s *Service) GetExtraction(id string) (*Extraction, error) {
	extraction, err := s.db.GetExtraction(id)
	if err != nil {
		return nil, fmt.Errorf("getting extraction: %w", err)
	}
	return extraction, nil
}

// ListExtractions returns all extractions, newest first
func (s *Service) ListExtractions() ([]*Extraction, error) {
	extractions, err := s.db.ListExtractions()
	if err != nil {
		return nil, fmt.Errorf("listing extractions: %w", err)
	}
	return extractions, nil
}

// DeleteExtraction removes an extraction and its source document
func (s *Service) DeleteExtraction(id string) error {
	extraction, err := s.db.GetExtraction(id)
	if err != nil {
		return fmt.Errorf("getting extraction for deletion: %w", err)
	}

	// a missing file must not keep the record alive
	s.removeFile(extraction.Filename)

	if err := s.db.DeleteExtraction(id); err != nil {
		return fmt.Errorf("deleting extraction from database: %w", err)
	}
	return nil
}

// GetExtractionFile retrieves the source document of an extraction
func (s *Service) GetExtractionFile(id string) ([]byte, string, error) {
	extraction, err := s.db.GetExtraction(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting extraction: %w", err)
	}

	data, err := s.storage.Get(extraction.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting extraction file: %w", err)
	}
	return data, extraction.ContentType, nil
}
