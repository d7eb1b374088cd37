package layout

import (
	"regexp"
	"strings"
)

var (
	// a serial number is a digit run followed by separator punctuation or a space;
	// "300mg" has no separator and is left alone, see stripSerial for "2.5 mg"
	leadingSerial = regexp.MustCompile(`^\d+(?:[.):\-#/]+\s*|\s+)`)
	reMultiSpace  = regexp.MustCompile(`\s+`)
)

// borderChars are OCR leftovers from table rules and bullets
const borderChars = "|*-_:;,"

// NormalizeName cleans an item name: collapses whitespace, strips a leading
// serial number and trims table-border punctuation. If cleaning would leave
// nothing, the input is returned unchanged.
func NormalizeName(s string) string {
	cleaned := strings.TrimSpace(reMultiSpace.ReplaceAllString(s, " "))
	cleaned = strings.Trim(cleaned, borderChars+" ")
	cleaned = stripSerial(cleaned)
	cleaned = strings.TrimSpace(strings.Trim(cleaned, borderChars+" "))
	if cleaned == "" {
		return s
	}
	return cleaned
}

// stripSerial removes a leading serial number. Punctuation glued to a
// following digit belongs to a decimal or a fraction ("0.9%", "1/2 Tab"),
// so the run is kept.
func stripSerial(s string) string {
	loc := leadingSerial.FindStringIndex(s)
	if loc == nil {
		return s
	}
	sep, rest := s[:loc[1]], s[loc[1]:]
	if !strings.Contains(sep, " ") && rest != "" && rest[0] >= '0' && rest[0] <= '9' {
		return s
	}
	return rest
}
