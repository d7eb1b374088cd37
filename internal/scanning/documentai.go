package scanning

import (
	"context"
	"fmt"
	"math"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/zombor/bill-extractor/internal/layout"
)

// DocumentAIConfig names the Document AI OCR processor to call
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// DocumentAI implements the Scanner interface using a Google Document AI OCR processor
type DocumentAI struct {
	client *documentai.DocumentProcessorClient
	name   string
}

// NewDocumentAI creates a client against the processor's regional endpoint
func NewDocumentAI(ctx context.Context, cfg DocumentAIConfig, opts ...option.ClientOption) (*DocumentAI, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("document ai project and processor are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts = append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating document ai client: %w", err)
	}

	return &DocumentAI{
		client: client,
		name:   fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
	}, nil
}

// ScanPages sends the whole document in one request; Document AI renders PDFs itself
func (d *DocumentAI) ScanPages(ctx context.Context, data []byte, contentType string) ([]Page, error) {
	content, mimeType, err := documentAIContent(data, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: true,
	})
	if err != nil {
		return nil, fmt.Errorf("processing document: %w", err)
	}
	return documentPages(resp.GetDocument()), nil
}

// documentAIContent passes through the formats Document AI reads natively and
// converts everything else (HEIC) to PNG
func documentAIContent(data []byte, contentType string) ([]byte, string, error) {
	mimeType := normalizeMimeType(contentType)
	if isPDF(data) {
		return data, "application/pdf", nil
	}
	switch mimeType {
	case "application/pdf", "image/png", "image/jpeg", "image/gif", "image/tiff", "image/webp", "image/bmp":
		return data, mimeType, nil
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, "", err
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return nil, "", err
	}
	return pngData, "image/png", nil
}

// documentPages converts Document AI tokens into word boxes in page pixels
func documentPages(doc *documentaipb.Document) []Page {
	if doc == nil {
		return nil
	}
	text := []rune(doc.GetText())

	pages := make([]Page, 0, len(doc.GetPages()))
	for i, p := range doc.GetPages() {
		page := Page{Number: int(p.GetPageNumber())}
		if page.Number == 0 {
			page.Number = i + 1
		}
		if dim := p.GetDimension(); dim != nil {
			page.Width, page.Height = float64(dim.GetWidth()), float64(dim.GetHeight())
		}

		for _, token := range p.GetTokens() {
			l := token.GetLayout()
			t := strings.TrimSpace(anchorText(l.GetTextAnchor(), text))
			if t == "" {
				continue
			}
			box, ok := polyBox(l.GetBoundingPoly(), page.Width, page.Height)
			if !ok {
				continue
			}
			box.Text = t
			box.Confidence = normalizeConfidence(float64(l.GetConfidence()))
			page.Words = append(page.Words, box)
		}
		pages = append(pages, page)
	}
	return pages
}

// anchorText resolves a text anchor against the document text, counted in runes
func anchorText(anchor *documentaipb.Document_TextAnchor, text []rune) string {
	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start := min(max(int(seg.GetStartIndex()), 0), len(text))
		end := min(max(int(seg.GetEndIndex()), start), len(text))
		sb.WriteString(string(text[start:end]))
	}
	return sb.String()
}

// polyBox takes the extent of a bounding polygon, preferring normalized
// vertices scaled by the page dimension
func polyBox(poly *documentaipb.BoundingPoly, width, height float64) (layout.WordBox, bool) {
	box := layout.WordBox{
		XMin: math.Inf(1), YMin: math.Inf(1),
		XMax: math.Inf(-1), YMax: math.Inf(-1),
	}
	extend := func(x, y float64) {
		box.XMin, box.XMax = min(box.XMin, x), max(box.XMax, x)
		box.YMin, box.YMax = min(box.YMin, y), max(box.YMax, y)
	}

	if nv := poly.GetNormalizedVertices(); len(nv) > 0 && width > 0 && height > 0 {
		for _, v := range nv {
			extend(float64(v.GetX())*width, float64(v.GetY())*height)
		}
		return box, true
	}
	if vs := poly.GetVertices(); len(vs) > 0 {
		for _, v := range vs {
			extend(float64(v.GetX()), float64(v.GetY()))
		}
		return box, true
	}
	return layout.WordBox{}, false
}

// Close closes the Document AI client
func (d *DocumentAI) Close() error {
	return d.client.Close()
}
