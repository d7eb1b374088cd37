package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/bill-extractor/internal/layout"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract 5.3.0' />
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "stdin"; bbox 0 0 600 800; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 20 100 560 160">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 20 100 560 160">
     <span class='ocr_line' id='line_1_1' title="bbox 20 100 560 120; baseline 0 0; x_size 20">
      <span class='ocrx_word' id='word_1_1' title='bbox 20 100 60 120; x_wconf 96'>Item</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 500 100 560 120; x_wconf 91'><strong>Amount</strong></span>
     </span>
     <span class='ocr_line' id='line_1_2' title="bbox 20 140 550 160">
      <span class='ocrx_word' id='word_1_3' title='bbox 20 140 50 160; x_wconf 88'>Livi</span>
      <span class='ocrx_word' id='word_1_4' title='bbox 60 140 70 160; x_wconf 30'> </span>
      <span class='ocrx_word' id='word_1_5' title='bbox 500 140 550 160'>448.00</span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

var _ = Describe("parseHOCR", func() {
	var (
		input []byte
		pages []Page
		err   error
	)

	JustBeforeEach(func() {
		pages, err = parseHOCR(input)
	})

	When("parsing tesseract output", func() {
		BeforeEach(func() {
			input = []byte(sampleHOCR)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("reads the page size from the page bbox", func() {
			Expect(pages).To(HaveLen(1))
			Expect(pages[0].Width).To(Equal(600.0))
			Expect(pages[0].Height).To(Equal(800.0))
		})

		It("extracts every non-blank word with its box and confidence", func() {
			Expect(pages[0].Words).To(Equal([]layout.WordBox{
				{Text: "Item", XMin: 20, YMin: 100, XMax: 60, YMax: 120, Confidence: 0.96},
				{Text: "Amount", XMin: 500, YMin: 100, XMax: 560, YMax: 120, Confidence: 0.91},
				{Text: "Livi", XMin: 20, YMin: 140, XMax: 50, YMax: 160, Confidence: 0.88},
				{Text: "448.00", XMin: 500, YMin: 140, XMax: 550, YMax: 160, Confidence: 1},
			}))
		})
	})

	When("the document declares a Latin-1 charset", func() {
		BeforeEach(func() {
			doc := "<html><head><meta http-equiv='Content-Type' content='text/html; charset=iso-8859-1'></head><body>" +
				"<div class='ocr_page' title='bbox 0 0 100 100'>" +
				"<span class='ocrx_word' title='bbox 1 1 20 10; x_wconf 90'>Caf\xe9</span>" +
				"</div></body></html>"
			input = []byte(doc)
		})

		It("decodes the text to UTF-8", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages[0].Words[0].Text).To(Equal("Café"))
		})
	})

	When("the document declares windows-1252", func() {
		BeforeEach(func() {
			doc := "<html><head><meta charset=\"windows-1252\"></head><body>" +
				"<div class='ocr_page' title='bbox 0 0 100 100'>" +
				"<span class='ocrx_word' title='bbox 1 1 20 10; x_wconf 90'>\x93Gauze\x94</span>" +
				"<span class='ocrx_word' title='bbox 30 1 60 10; x_wconf 90'>\x80100</span>" +
				"</div></body></html>"
			input = []byte(doc)
		})

		It("decodes the characters Latin-1 lacks", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages[0].Words[0].Text).To(Equal("\u201cGauze\u201d"))
			Expect(pages[0].Words[1].Text).To(Equal("\u20ac100"))
		})
	})

	When("the declared charset is unknown", func() {
		BeforeEach(func() {
			doc := "<html><head><meta charset='x-made-up'></head><body>" +
				"<div class='ocr_page' title='bbox 0 0 100 100'>" +
				"<span class='ocrx_word' title='bbox 1 1 20 10'>Caf\xe9</span>" +
				"</div></body></html>"
			input = []byte(doc)
		})

		It("falls back to Latin-1", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages[0].Words[0].Text).To(Equal("Café"))
		})
	})

	When("there is no ocr_page", func() {
		BeforeEach(func() {
			input = []byte("<html><body><p>nothing</p></body></html>")
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("no ocr_page")))
		})
	})
})

var _ = Describe("parseTitle", func() {
	It("splits properties on semicolons", func() {
		props := parseTitle("bbox 100 200 300 400; x_wconf 95")
		Expect(props).To(HaveKeyWithValue("bbox", []string{"100", "200", "300", "400"}))
		Expect(props).To(HaveKeyWithValue("x_wconf", []string{"95"}))
	})

	It("rejects a short bbox", func() {
		_, ok := parseBBox("bbox 1 2 3")
		Expect(ok).To(BeFalse())
	})
})
