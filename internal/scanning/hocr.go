package scanning

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	"github.com/zombor/bill-extractor/internal/layout"
)

// parseHOCR extracts the ocrx_word boxes of every ocr_page in an hOCR document
func parseHOCR(data []byte) ([]Page, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parsing hOCR: %w", err)
	}

	var pages []Page
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			page := Page{Number: len(pages) + 1}
			if bbox, ok := parseBBox(attr(n, "title")); ok {
				page.Width, page.Height = bbox[2]-bbox[0], bbox[3]-bbox[1]
			}
			collectWords(n, &page.Words)
			pages = append(pages, page)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(pages) == 0 {
		return nil, fmt.Errorf("no ocr_page elements found in hOCR data")
	}
	return pages, nil
}

func collectWords(n *html.Node, words *[]layout.WordBox) {
	if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
		title := attr(n, "title")
		bbox, ok := parseBBox(title)
		text := strings.TrimSpace(nodeText(n))
		if !ok || text == "" {
			return
		}
		confidence := 1.0
		if v, ok := parseTitle(title)["x_wconf"]; ok && len(v) > 0 {
			if c, err := strconv.ParseFloat(v[0], 64); err == nil {
				confidence = normalizeConfidence(c)
			}
		}
		*words = append(*words, layout.WordBox{
			Text:       text,
			XMin:       bbox[0],
			YMin:       bbox[1],
			XMax:       bbox[2],
			YMax:       bbox[3],
			Confidence: confidence,
		})
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectWords(c, words)
	}
}

// decodeCharset converts hOCR in a declared legacy charset to UTF-8;
// tesseract itself always writes UTF-8. Unknown labels are read as Latin-1.
func decodeCharset(data []byte) ([]byte, error) {
	head := strings.ToLower(string(data[:min(len(data), 1024)]))
	i := strings.Index(head, "charset=")
	if i < 0 {
		return data, nil
	}
	label := strings.FieldsFunc(head[i+len("charset="):], func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(label) == 0 {
		return data, nil
	}

	enc, name := charset.Lookup(label[0])
	if name == "utf-8" {
		return data, nil
	}
	if enc == nil {
		enc, name = charmap.ISO8859_1, "iso-8859-1"
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return decoded, nil
}

// parseTitle breaks an hOCR title attribute into its properties.
// "bbox 100 200 300 400; x_wconf 95" yields bbox and x_wconf.
func parseTitle(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			props[items[0]] = items[1:]
		}
	}
	return props
}

func parseBBox(title string) ([4]float64, bool) {
	var box [4]float64
	v, ok := parseTitle(title)["bbox"]
	if !ok || len(v) < 4 {
		return box, false
	}
	for i := range box {
		f, err := strconv.ParseFloat(v[i], 64)
		if err != nil {
			return box, false
		}
		box[i] = f
	}
	return box, true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
