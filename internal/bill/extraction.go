package bill

import (
	"math"
	"time"

	"github.com/zombor/bill-extractor/internal/layout"
)

// Extraction is one processed document kept in the history
type Extraction struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"` // document URL, or "upload"
	Filename    string        `json:"filename"`
	ContentType string        `json:"content_type"`
	Result      Data          `json:"result"`
	PagesFailed []PageFailure `json:"pages_failed,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PageFailure records a page that produced no items and why
type PageFailure struct {
	PageNo string `json:"page_no"`
	Reason string `json:"reason"`
}

// SourceUpload marks extractions created from a multipart upload
const SourceUpload = "upload"

// TokenUsage is always zero; the OCR path spends no LLM tokens that are accounted for
type TokenUsage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Data is the payload of a successful response
type Data struct {
	PagewiseLineItems []layout.PageResult `json:"pagewise_line_items"`
	TotalItemCount    int                 `json:"total_item_count"`
	ReconciledAmount  float64             `json:"reconciled_amount"`
}

// Response is the envelope returned by POST /extract
type Response struct {
	IsSuccess  bool       `json:"is_success"`
	TokenUsage TokenUsage `json:"token_usage"`
	Data       *Data      `json:"data"`
	Error      string     `json:"error,omitempty"`
}

// NewData totals the page results
func NewData(pages []layout.PageResult) Data {
	d := Data{PagewiseLineItems: pages}
	if d.PagewiseLineItems == nil {
		d.PagewiseLineItems = []layout.PageResult{}
	}
	var sum float64
	for _, p := range pages {
		d.TotalItemCount += len(p.BillItems)
		for _, item := range p.BillItems {
			sum += item.ItemAmount
		}
	}
	// float sums drift; amounts are printed to the cent
	d.ReconciledAmount = math.Round(sum*100) / 100
	return d
}

// SuccessResponse wraps extracted data
func SuccessResponse(d Data) Response {
	return Response{IsSuccess: true, Data: &d}
}

// ErrorResponse reports a failed extraction
func ErrorResponse(err error) Response {
	return Response{IsSuccess: false, Error: err.Error()}
}
