package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPage means the page had no usable words
	ErrEmptyPage = errors.New("empty page")

	// ErrHeaderNotFound means no row matched enough column keyword groups
	ErrHeaderNotFound = errors.New("header not found")

	// ErrMissingAmount means a line item had nothing in its amount column
	ErrMissingAmount = errors.New("missing amount")

	// ErrMissingName means a line item had no item name left after normalization
	ErrMissingName = errors.New("missing item name")
)

// NumericParseError is returned when a numeric column holds text that is not a number
type NumericParseError struct {
	Column ColumnLabel
	Text   string
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("parsing %s %q as number", e.Column, e.Text)
}
