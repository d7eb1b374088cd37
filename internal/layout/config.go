package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable parameters of the extraction pipeline
type Config struct {
	// RowTolerance widens a row's vertical band by this fraction of the
	// page's median word height when deciding whether a word joins it
	RowTolerance float64 `yaml:"row_tolerance"`

	// MinOverlap is the fraction of a word's width that must overlap a
	// column for the word to be assigned to it
	MinOverlap float64 `yaml:"min_overlap"`

	// MinHeaderGroups is the number of distinct keyword groups a row must
	// match to be accepted as the table header
	MinHeaderGroups int `yaml:"min_header_groups"`

	// MismatchTolerance and MinorUnit bound the advisory quantity*rate vs
	// amount check: relative and absolute, whichever is larger
	MismatchTolerance float64 `yaml:"mismatch_tolerance"`
	MinorUnit         float64 `yaml:"minor_unit"`

	// MinConfidence drops words below this OCR confidence before grouping
	MinConfidence float64 `yaml:"min_confidence"`

	HeaderKeywords map[ColumnLabel][]string `yaml:"header_keywords"`
	FooterKeywords []string                 `yaml:"footer_keywords"`
	StopKeywords   []string                 `yaml:"stop_keywords"`
}

// DefaultConfig returns a config with defaults tuned on printed pharmacy and hospital bills
func DefaultConfig() Config {
	return Config{
		RowTolerance:      0.25,
		MinOverlap:        0.5,
		MinHeaderGroups:   2,
		MismatchTolerance: 0.01,
		MinorUnit:         0.01,
		MinConfidence:     0,
		HeaderKeywords: map[ColumnLabel][]string{
			ItemName: {"description", "desc", "item", "items", "particulars", "product", "name", "item name", "service", "details"},
			Quantity: {"qty", "quantity", "qnty", "units", "unit", "nos"},
			Rate:     {"rate", "price", "unit price", "mrp", "unit rate", "cost"},
			Amount:   {"amount", "net amount", "gross amount", "total", "net", "amt", "value"},
		},
		FooterKeywords: []string{
			"total", "grand total", "sub total", "subtotal", "net total",
			"category total", "balance due", "net payable", "amount due",
			"bill amount", "round off",
		},
		StopKeywords: []string{"printed on"},
	}
}

// LoadConfig reads a YAML file and merges it over DefaultConfig.
// Keyword groups present in the file replace the default group of the same label.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading layout config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing layout config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that every parameter is inside its usable range
func (c Config) Validate() error {
	if c.RowTolerance < 0 {
		return fmt.Errorf("row tolerance must not be negative: %v", c.RowTolerance)
	}
	if c.MinOverlap <= 0 || c.MinOverlap > 1 {
		return fmt.Errorf("min overlap must be in (0, 1]: %v", c.MinOverlap)
	}
	if c.MinHeaderGroups < 1 || c.MinHeaderGroups > len(columnOrder) {
		return fmt.Errorf("min header groups must be between 1 and %d: %d", len(columnOrder), c.MinHeaderGroups)
	}
	if c.MismatchTolerance < 0 || c.MinorUnit < 0 {
		return fmt.Errorf("mismatch tolerances must not be negative")
	}
	for label := range c.HeaderKeywords {
		if !label.named() {
			return fmt.Errorf("unknown column label in header keywords: %s", label)
		}
	}
	return nil
}

// columnOrder fixes the iteration order over keyword groups
var columnOrder = []ColumnLabel{ItemName, Quantity, Rate, Amount}

func (l ColumnLabel) named() bool {
	for _, c := range columnOrder {
		if l == c {
			return true
		}
	}
	return false
}
