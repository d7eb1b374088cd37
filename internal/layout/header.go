package layout

import (
	"sort"
	"strings"
)

// keyword is one synonym of a column label, pre-tokenized
type keyword struct {
	label  ColumnLabel
	tokens []string
	joined string
}

// headerSpan is a run of header words that matched the same column label
type headerSpan struct {
	label      ColumnLabel
	xMin, xMax float64
}

// minPrefixLen is the shortest synonym allowed to match as a word prefix
const minPrefixLen = 3

func compileKeywords(groups map[ColumnLabel][]string) []keyword {
	var keywords []keyword
	for _, label := range columnOrder {
		for _, synonym := range groups[label] {
			tokens := tokenize(synonym)
			if len(tokens) == 0 {
				continue
			}
			keywords = append(keywords, keyword{
				label:  label,
				tokens: tokens,
				joined: strings.Join(tokens, ""),
			})
		}
	}
	// Longest phrase wins, so "net amount" is tried before "net"
	sort.SliceStable(keywords, func(i, j int) bool {
		if len(keywords[i].tokens) != len(keywords[j].tokens) {
			return len(keywords[i].tokens) > len(keywords[j].tokens)
		}
		return len(keywords[i].joined) > len(keywords[j].joined)
	})
	return keywords
}

// rowToken is a normalized token and the word it came from
type rowToken struct {
	text string
	word int
}

func rowTokens(words []WordBox) []rowToken {
	var tokens []rowToken
	for i, w := range words {
		for _, t := range tokenize(w.Text) {
			tokens = append(tokens, rowToken{text: t, word: i})
		}
	}
	return tokens
}

// matchAt tries every keyword at token position i and returns the label and
// the number of tokens consumed, or 0 when nothing matched
func matchAt(tokens []rowToken, i int, keywords []keyword) (ColumnLabel, int) {
	for _, kw := range keywords {
		if len(kw.tokens) < 2 || i+len(kw.tokens) > len(tokens) {
			continue
		}
		match := true
		for j, t := range kw.tokens {
			if tokens[i+j].text != t {
				match = false
				break
			}
		}
		if match {
			return kw.label, len(kw.tokens)
		}
	}

	tok := tokens[i].text
	for _, kw := range keywords {
		if tok == kw.joined {
			return kw.label, 1
		}
	}

	var best *keyword
	for k := range keywords {
		kw := &keywords[k]
		if len(kw.tokens) != 1 || len(kw.joined) < minPrefixLen || !strings.HasPrefix(tok, kw.joined) {
			continue
		}
		if best == nil || len(kw.joined) > len(best.joined) {
			best = kw
		}
	}
	if best != nil {
		return best.label, 1
	}
	return "", 0
}

// matchHeader returns the keyword spans found in a row, merging
// neighbouring matches of the same label ("Item Description")
func matchHeader(words []WordBox, keywords []keyword) []headerSpan {
	tokens := rowTokens(words)

	var spans []headerSpan
	lastEnd := -1
	for i := 0; i < len(tokens); {
		label, n := matchAt(tokens, i, keywords)
		if n == 0 {
			i++
			continue
		}

		xMin, xMax := words[tokens[i].word].XMin, words[tokens[i].word].XMax
		for _, t := range tokens[i : i+n] {
			xMin = min(xMin, words[t.word].XMin)
			xMax = max(xMax, words[t.word].XMax)
		}

		if len(spans) > 0 && lastEnd == i && spans[len(spans)-1].label == label {
			prev := &spans[len(spans)-1]
			prev.xMin = min(prev.xMin, xMin)
			prev.xMax = max(prev.xMax, xMax)
		} else {
			spans = append(spans, headerSpan{label: label, xMin: xMin, xMax: xMax})
		}
		i += n
		lastEnd = i
	}
	return spans
}

func distinctLabels(spans []headerSpan) int {
	seen := make(map[ColumnLabel]bool, len(columnOrder))
	for _, s := range spans {
		seen[s.label] = true
	}
	return len(seen)
}

// LocateHeader finds the table header row and derives the column boundaries
// from it. It returns the header's index into rows. The best-scoring row
// wins; ties go to the topmost row.
func (e *Extractor) LocateHeader(rows []Row, pageWidth float64) (int, []ColumnBoundary, error) {
	best, bestScore := -1, 0
	var bestSpans []headerSpan
	for i, row := range rows {
		spans := matchHeader(row.Words, e.headerKeywords)
		score := distinctLabels(spans)
		if score >= e.cfg.MinHeaderGroups && score > bestScore {
			best, bestScore, bestSpans = i, score, spans
		}
	}
	if best < 0 {
		return -1, nil, ErrHeaderNotFound
	}
	return best, columnsFromSpans(bestSpans, pageWidth), nil
}

// columnsFromSpans keeps one span per label and splits the page at the
// midpoints of the gaps between them
func columnsFromSpans(spans []headerSpan, pageWidth float64) []ColumnBoundary {
	chosen := make(map[ColumnLabel]headerSpan, len(columnOrder))
	for _, s := range spans {
		prev, ok := chosen[s.label]
		switch {
		case !ok:
			chosen[s.label] = s
		case s.label == Amount && s.xMin > prev.xMin:
			// Net amount is conventionally the rightmost money column
			chosen[s.label] = s
		case s.label != Amount && s.xMin < prev.xMin:
			chosen[s.label] = s
		}
	}

	ordered := make([]headerSpan, 0, len(chosen))
	for _, label := range columnOrder {
		if s, ok := chosen[label]; ok {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].xMin < ordered[j].xMin
	})

	columns := make([]ColumnBoundary, len(ordered))
	start := 0.0
	for i, s := range ordered {
		end := max(pageWidth, s.xMax)
		if i+1 < len(ordered) {
			end = (s.xMax + ordered[i+1].xMin) / 2
		}
		end = max(end, start)
		columns[i] = ColumnBoundary{Label: s.label, Start: start, End: end}
		start = end
	}
	return columns
}
