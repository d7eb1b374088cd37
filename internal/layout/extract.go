package layout

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// assignColumn returns the index of the column the word overlaps most.
// A word whose best overlap covers less than minOverlap of its own width
// belongs to no column.
func assignColumn(w WordBox, columns []ColumnBoundary, minOverlap float64) (int, bool) {
	width := w.Width()
	if width <= 0 {
		for i, c := range columns {
			if w.XMin >= c.Start && w.XMin < c.End {
				return i, true
			}
		}
		return -1, false
	}

	best, bestOverlap := -1, 0.0
	for i, c := range columns {
		overlap := math.Min(w.XMax, c.End) - math.Max(w.XMin, c.Start)
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	if best < 0 || bestOverlap < minOverlap*width {
		return -1, false
	}
	return best, true
}

// ExtractRow turns a LINE_ITEM row into a BillItem. Numeric cells that do
// not parse fail the whole row with a *NumericParseError; nothing is
// defaulted to zero.
func (e *Extractor) ExtractRow(row Row, columns []ColumnBoundary) (BillItem, error) {
	cells := make(map[ColumnLabel][]WordBox, len(columns))
	for _, w := range row.Words {
		idx, ok := assignColumn(w, columns, e.cfg.MinOverlap)
		if !ok {
			continue
		}
		label := columns[idx].Label
		cells[label] = append(cells[label], w)
	}

	qty, hasQty, err := parseCell(Quantity, cells[Quantity])
	if err != nil {
		return BillItem{}, err
	}
	rate, hasRate, err := parseCell(Rate, cells[Rate])
	if err != nil {
		return BillItem{}, err
	}
	amount, hasAmount, err := parseCell(Amount, cells[Amount])
	if err != nil {
		return BillItem{}, err
	}

	// the printed amount is what the bill charges; it is never derived
	if !hasAmount {
		return BillItem{}, ErrMissingAmount
	}
	if !hasQty {
		qty = 1
	}
	if !hasRate {
		rate = amount
		if qty != 0 {
			rate = amount / qty
		}
	}

	name := NormalizeName(joinWords(cells[ItemName], " "))
	if normalizeToken(name) == "" {
		return BillItem{}, ErrMissingName
	}

	return BillItem{
		ItemName:     name,
		ItemQuantity: qty,
		ItemRate:     rate,
		ItemAmount:   amount,
	}, nil
}

// parseCell concatenates a numeric cell and parses it. If the joined text
// fails but every word parses alone, the first word wins; this keeps a
// headerless discount column that bled into the amount column from
// dropping the row.
func parseCell(label ColumnLabel, words []WordBox) (float64, bool, error) {
	text := joinWords(words, "")
	if strings.Trim(text, "-–—.") == "" {
		// blank or a dash placeholder
		return 0, false, nil
	}
	if v, err := ParseAmount(text); err == nil {
		return v, true, nil
	}

	if len(words) > 1 {
		values := make([]float64, 0, len(words))
		for _, w := range words {
			if strings.TrimSpace(w.Text) == "" {
				continue
			}
			v, err := ParseAmount(w.Text)
			if err != nil {
				values = nil
				break
			}
			values = append(values, v)
		}
		if len(values) > 0 {
			return values[0], true, nil
		}
	}
	return 0, false, &NumericParseError{Column: label, Text: text}
}

var (
	currencyCodes = regexp.MustCompile(`(?i)(rs\.?|inr|usd|eur|gbp)`)
	commaGroups   = regexp.MustCompile(`^\d{1,3}(,\d{2,3})+$`)
	dotGroups     = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	errNotNumber  = errors.New("not a number")
)

// ParseAmount parses a printed money or quantity figure. It strips currency
// symbols and codes, repairs O/0 and l/1 confusion inside otherwise numeric
// text, and works out whether ',' and '.' are thousands or decimal marks.
func ParseAmount(s string) (float64, error) {
	s = strings.Join(strings.Fields(s), "")
	s = currencyCodes.ReplaceAllString(s, "")
	// "448/-" is the rupee "only" suffix, not a sign
	s = strings.TrimSuffix(s, "/-")
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)

	negative := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative, s = true, s[1:len(s)-1]
	case strings.HasPrefix(s, "-"):
		negative, s = true, s[1:]
	case strings.HasSuffix(s, "-"):
		negative, s = true, s[:len(s)-1]
	}

	if !strings.ContainsFunc(s, unicode.IsDigit) {
		return 0, errNotNumber
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'O', 'o':
			return '0'
		case 'l', 'I', '|':
			return '1'
		}
		return r
	}, s)
	s = strings.TrimLeft(strings.TrimRight(s, ".,"), ",")

	for _, r := range s {
		if !unicode.IsDigit(r) && r != ',' && r != '.' {
			return 0, errNotNumber
		}
	}

	s, err := resolveSeparators(s)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotNumber
	}
	if negative {
		v = -v
	}
	return v, nil
}

// resolveSeparators rewrites s so that '.' is the only, decimal, separator
func resolveSeparators(s string) (string, error) {
	commas, dots := strings.Count(s, ","), strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,56
			if commas > 1 {
				return "", errNotNumber
			}
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1), nil
		}
		// 1,234.56
		if dots > 1 {
			return "", errNotNumber
		}
		return strings.ReplaceAll(s, ",", ""), nil
	case commas == 1:
		if tail := len(s) - strings.LastIndex(s, ",") - 1; tail == 1 || tail == 2 {
			return strings.Replace(s, ",", ".", 1), nil
		}
		return strings.ReplaceAll(s, ",", ""), nil
	case commas > 1:
		// 1,23,456 (lakh grouping) or 1,234,567
		if !commaGroups.MatchString(s) {
			return "", errNotNumber
		}
		return strings.ReplaceAll(s, ",", ""), nil
	case dots > 1:
		// 1.234.567; anything else is two numbers run together
		if !dotGroups.MatchString(s) {
			return "", errNotNumber
		}
		return strings.ReplaceAll(s, ".", ""), nil
	}
	return s, nil
}
