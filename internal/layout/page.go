// Package layout reconstructs bill tables from OCR word boxes.
//
// The pipeline is a pure function of its input: words are grouped into rows,
// the header row is located and column boundaries are derived from it, every
// row is classified, and LINE_ITEM rows are turned into BillItems. An
// Extractor holds no mutable state and may be shared between goroutines.
package layout

import (
	"math"
	"strings"
)

// Extractor runs the page pipeline with a fixed configuration
type Extractor struct {
	cfg            Config
	headerKeywords []keyword
	footerPhrases  [][]string
	stopPhrases    [][]string
}

// New creates an Extractor after validating cfg
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:            cfg,
		headerKeywords: compileKeywords(cfg.HeaderKeywords),
		footerPhrases:  compilePhrases(cfg.FooterKeywords),
		stopPhrases:    compilePhrases(cfg.StopKeywords),
	}, nil
}

// Config returns the configuration the Extractor was built with
func (e *Extractor) Config() Config {
	return e.cfg
}

// ExtractPage runs the whole pipeline over one page of OCR output.
//
// It never fails outright: an empty page or a page without a recognizable
// header yields a PageResult with no items and the condition in
// PageReport.Failure. Rows that could not be extracted are listed in
// PageReport.Dropped with their reason.
func (e *Extractor) ExtractPage(pageNo string, page Page) (PageResult, PageReport) {
	result := PageResult{
		PageNo:    pageNo,
		PageType:  PageTypeBillDetail,
		BillItems: []BillItem{},
	}
	report := PageReport{Header: -1}

	words := e.usableWords(page.Words)
	report.Rows = GroupRows(words, e.cfg.RowTolerance)
	if len(report.Rows) == 0 {
		report.Failure = ErrEmptyPage
		return result, report
	}

	header, columns, err := e.LocateHeader(report.Rows, pageWidth(page, words))
	if err != nil {
		report.Failure = err
		report.Classes = make([]RowClass, len(report.Rows))
		for i := range report.Classes {
			report.Classes[i] = Ignore
		}
		return result, report
	}
	report.Header = header
	report.Columns = columns
	report.Classes = e.ClassifyRows(report.Rows, header, columns)

	for i, row := range report.Rows {
		if report.Classes[i] != LineItem {
			continue
		}
		item, err := e.ExtractRow(row, columns)
		if err != nil {
			report.Dropped = append(report.Dropped, DroppedRow{Row: i, Reason: err})
			continue
		}
		if expected, ok := e.mismatch(item); ok {
			report.Mismatch = append(report.Mismatch, AmountMismatch{
				Row:      i,
				Item:     len(result.BillItems),
				Expected: expected,
				Actual:   item.ItemAmount,
			})
		}
		result.BillItems = append(result.BillItems, item)
	}

	return result, report
}

func (e *Extractor) usableWords(words []WordBox) []WordBox {
	usable := make([]WordBox, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Confidence < e.cfg.MinConfidence {
			continue
		}
		usable = append(usable, w)
	}
	return usable
}

// mismatch reports whether quantity*rate strays from the amount by more
// than the configured tolerance, returning the expected amount
func (e *Extractor) mismatch(item BillItem) (float64, bool) {
	expected := item.ItemQuantity * item.ItemRate
	tolerance := math.Max(e.cfg.MismatchTolerance*math.Abs(item.ItemAmount), e.cfg.MinorUnit)
	return expected, math.Abs(expected-item.ItemAmount) > tolerance
}

func pageWidth(page Page, words []WordBox) float64 {
	width := page.Width
	for _, w := range words {
		width = math.Max(width, w.XMax)
	}
	return width
}
