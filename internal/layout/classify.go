package layout

import (
	"regexp"
)

// pageMarker matches running page footers such as "Page 2 of 5"
var pageMarker = regexp.MustCompile(`(?i)\bpage\s*\d+\s*(of|/)\s*\d+\b`)

func compilePhrases(phrases []string) [][]string {
	compiled := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		if tokens := tokenize(p); len(tokens) > 0 {
			compiled = append(compiled, tokens)
		}
	}
	return compiled
}

func matchesAny(tokens []string, phrases [][]string) bool {
	for _, p := range phrases {
		if containsPhrase(tokens, p) {
			return true
		}
	}
	return false
}

// ClassifyRows labels every row relative to the located header.
//
// Rows above the header are ignored. Summary rows (totals, balance due) are
// FOOTER so they are never extracted as purchases. An end-of-table marker
// ("printed on", "page 1 of 2") is FOOTER and everything after it is
// ignored. Rows with fewer than two words inside a named column are noise.
func (e *Extractor) ClassifyRows(rows []Row, header int, columns []ColumnBoundary) []RowClass {
	classes := make([]RowClass, len(rows))
	ended := false
	for i, row := range rows {
		switch {
		case i == header:
			classes[i] = Header
		case i < header || ended:
			classes[i] = Ignore
		default:
			classes[i] = e.classifyBodyRow(row, columns)
			if classes[i] == Footer && e.isStopRow(row) {
				ended = true
			}
		}
	}
	return classes
}

func (e *Extractor) classifyBodyRow(row Row, columns []ColumnBoundary) RowClass {
	tokens := tokenize(row.Text())
	if matchesAny(tokens, e.footerPhrases) || e.isStopRow(row) {
		return Footer
	}

	inColumns := 0
	for _, w := range row.Words {
		if _, ok := assignColumn(w, columns, e.cfg.MinOverlap); ok {
			inColumns++
		}
	}
	if inColumns < 2 {
		return Ignore
	}
	return LineItem
}

func (e *Extractor) isStopRow(row Row) bool {
	if pageMarker.MatchString(row.Text()) {
		return true
	}
	return matchesAny(tokenize(row.Text()), e.stopPhrases)
}
