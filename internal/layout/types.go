package layout

// WordBox is a single OCR token with its bounding rectangle in page pixels
type WordBox struct {
	Text       string  `json:"text"`
	XMin       float64 `json:"x_min"`
	YMin       float64 `json:"y_min"`
	XMax       float64 `json:"x_max"`
	YMax       float64 `json:"y_max"`
	Confidence float64 `json:"confidence"` // 0..1
}

// Width returns the horizontal extent of the box
func (w WordBox) Width() float64 { return w.XMax - w.XMin }

// Height returns the vertical extent of the box
func (w WordBox) Height() float64 { return w.YMax - w.YMin }

// CenterY returns the vertical center of the box
func (w WordBox) CenterY() float64 { return (w.YMin + w.YMax) / 2 }

// Page is the OCR output for one page
type Page struct {
	Width float64 // optional, 0 when the scanner does not know it
	Words []WordBox
}

// Row is a horizontal band of words inferred to sit on one printed line.
// Words are ordered left to right.
type Row struct {
	Words   []WordBox
	YCenter float64
	Height  float64
}

// Text joins the row's words with single spaces
func (r Row) Text() string {
	return joinWords(r.Words, " ")
}

// ColumnLabel names the semantic field a column holds
type ColumnLabel string

const (
	ItemName ColumnLabel = "ITEM_NAME"
	Quantity ColumnLabel = "QUANTITY"
	Rate     ColumnLabel = "RATE"
	Amount   ColumnLabel = "AMOUNT"
	Unknown  ColumnLabel = "UNKNOWN"
)

// ColumnBoundary is a labelled horizontal interval [Start, End)
type ColumnBoundary struct {
	Label ColumnLabel `json:"label"`
	Start float64     `json:"start"`
	End   float64     `json:"end"`
}

// RowClass is the role a row plays in the table
type RowClass string

const (
	Header   RowClass = "HEADER"
	LineItem RowClass = "LINE_ITEM"
	Footer   RowClass = "FOOTER"
	Ignore   RowClass = "IGNORE"
)

// BillItem is one purchased line
type BillItem struct {
	ItemName     string  `json:"item_name"`
	ItemAmount   float64 `json:"item_amount"`
	ItemRate     float64 `json:"item_rate"`
	ItemQuantity float64 `json:"item_quantity"`
}

// PageTypeBillDetail is the page_type reported for every extracted page
const PageTypeBillDetail = "Bill Detail"

// PageResult is the extracted content of one page
type PageResult struct {
	PageNo    string     `json:"page_no"`
	PageType  string     `json:"page_type"`
	BillItems []BillItem `json:"bill_items"`
}

// DroppedRow records a LINE_ITEM row that produced no BillItem
type DroppedRow struct {
	Row    int
	Reason error
}

// AmountMismatch flags an emitted item whose quantity*rate disagrees with its amount
type AmountMismatch struct {
	Row      int
	Item     int // index into PageResult.BillItems
	Expected float64
	Actual   float64
}

// PageReport carries the diagnostics of one ExtractPage call
type PageReport struct {
	Failure  error // ErrEmptyPage, ErrHeaderNotFound or nil
	Header   int   // index of the header row, -1 when none
	Rows     []Row
	Columns  []ColumnBoundary
	Classes  []RowClass
	Dropped  []DroppedRow
	Mismatch []AmountMismatch
}
