package scanning

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zombor/bill-extractor/internal/layout"
)

// Tesseract implements the Scanner interface by running the tesseract CLI
// and reading its hOCR output
type Tesseract struct {
	binary  string
	lang    string
	psm     int
	enhance bool
}

// NewTesseract checks that the tesseract binary can be found.
// psm is the page segmentation mode; 6 ("single uniform block") suits bill tables.
func NewTesseract(binary, lang string, psm int, enhance bool) (*Tesseract, error) {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("finding tesseract binary: %w", err)
	}
	return &Tesseract{binary: path, lang: lang, psm: psm, enhance: enhance}, nil
}

// ScanPages runs tesseract over every rendered page
func (t *Tesseract) ScanPages(ctx context.Context, data []byte, contentType string) ([]Page, error) {
	return scanEach(ctx, data, contentType, t.scanPage)
}

func (t *Tesseract) scanPage(ctx context.Context, img image.Image) ([]layout.WordBox, error) {
	if t.enhance {
		img = enhance(img)
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, t.args()...)
	cmd.Stdin = bytes.NewReader(pngData)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := parseHOCR(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	var words []layout.WordBox
	for _, p := range pages {
		words = append(words, p.Words...)
	}
	return words, nil
}

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout", "-l", t.lang}
	if t.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(t.psm))
	}
	return append(args, "hocr")
}

// Close is a no-op; every page runs in its own process
func (t *Tesseract) Close() error {
	return nil
}
