package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/bill-extractor/internal/layout"
)

// wordBoxPrompt is the shared prompt used by all LLM providers. It asks for
// raw OCR output only; table reconstruction happens in the layout package.
const wordBoxPrompt = `You are an OCR engine. Read every printed word in this bill or invoice image and report its position.

The image is %d pixels wide and %d pixels tall. Coordinates are pixels with the origin at the top-left corner.

Return ONLY a JSON array, one element per word, in this exact format:
[
  {"text": "Amount", "x_min": 500, "y_min": 100, "x_max": 560, "y_max": 120, "confidence": 0.98}
]

Important:
- One element per whitespace-separated word; do not merge words into lines
- Copy the text exactly as printed, including digits, commas and decimal points
- Do not correct, translate or reorder anything
- confidence is your certainty between 0 and 1
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

func promptFor(width, height int) string {
	return fmt.Sprintf(wordBoxPrompt, width, height)
}

// wordJSON is one word as returned by an LLM provider
type wordJSON struct {
	Text       string   `json:"text"`
	XMin       float64  `json:"x_min"`
	YMin       float64  `json:"y_min"`
	XMax       float64  `json:"x_max"`
	YMax       float64  `json:"y_max"`
	Confidence *float64 `json:"confidence"`
}

// parseWordsJSON parses the word array returned by an LLM provider.
// Coordinates in 0..1 are treated as normalized and scaled to the image size.
func parseWordsJSON(text string, width, height int) ([]layout.WordBox, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}
	text = text[startIdx : endIdx+1]

	var raw []wordJSON
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	normalized := len(raw) > 0
	for _, w := range raw {
		if max(w.XMin, w.YMin, w.XMax, w.YMax) > 1 {
			normalized = false
			break
		}
	}

	words := make([]layout.WordBox, 0, len(raw))
	for _, w := range raw {
		t := strings.TrimSpace(w.Text)
		if t == "" {
			continue
		}
		box := layout.WordBox{
			Text:       t,
			XMin:       min(w.XMin, w.XMax),
			YMin:       min(w.YMin, w.YMax),
			XMax:       max(w.XMin, w.XMax),
			YMax:       max(w.YMin, w.YMax),
			Confidence: 1,
		}
		if normalized {
			box.XMin *= float64(width)
			box.XMax *= float64(width)
			box.YMin *= float64(height)
			box.YMax *= float64(height)
		}
		if w.Confidence != nil {
			box.Confidence = normalizeConfidence(*w.Confidence)
		}
		words = append(words, box)
	}
	return words, nil
}

// normalizeConfidence maps a 0..1 or 0..100 score into 0..1
func normalizeConfidence(c float64) float64 {
	if c > 1 {
		c /= 100
	}
	return min(max(c, 0), 1)
}
