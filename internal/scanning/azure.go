package scanning

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/zombor/bill-extractor/internal/layout"
)

// Azure implements the Scanner interface using Azure Computer Vision OCR
type Azure struct {
	client  computervision.BaseClient
	enhance bool
}

// NewAzure creates an Azure Computer Vision scanner for the given endpoint
func NewAzure(endpoint, apiKey string, enhance bool) (*Azure, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure endpoint and key are required")
	}
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Azure{client: client, enhance: enhance}, nil
}

// ScanPages runs printed-text OCR over every rendered page
func (a *Azure) ScanPages(ctx context.Context, data []byte, contentType string) ([]Page, error) {
	return scanEach(ctx, data, contentType, a.scanPage)
}

func (a *Azure) scanPage(ctx context.Context, img image.Image) ([]layout.WordBox, error) {
	if a.enhance {
		img = enhance(img)
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(pngData)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return nil, fmt.Errorf("recognizing printed text: %w", err)
	}
	return azureWords(result), nil
}

// azureWords flattens regions and lines into word boxes. Azure reports no
// per-word confidence, so every word gets 1.
func azureWords(result computervision.OcrResult) []layout.WordBox {
	var words []layout.WordBox
	if result.Regions == nil {
		return words
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			for _, w := range *line.Words {
				if w.Text == nil || w.BoundingBox == nil {
					continue
				}
				box, ok := parseAzureBox(*w.BoundingBox)
				text := strings.TrimSpace(*w.Text)
				if !ok || text == "" {
					continue
				}
				words = append(words, layout.WordBox{
					Text:       text,
					XMin:       box[0],
					YMin:       box[1],
					XMax:       box[0] + box[2],
					YMax:       box[1] + box[3],
					Confidence: 1,
				})
			}
		}
	}
	return words
}

// parseAzureBox parses "left,top,width,height"
func parseAzureBox(s string) ([4]float64, bool) {
	var box [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return box, false
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return box, false
		}
		box[i] = v
	}
	return box, true
}

// Close is a no-op for the REST client
func (a *Azure) Close() error {
	return nil
}
