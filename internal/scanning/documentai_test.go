package scanning

import (
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func token(start, end int64, x0, y0, x1, y1 float32) *documentaipb.Document_Page_Token {
	return &documentaipb.Document_Page_Token{
		Layout: &documentaipb.Document_Page_Layout{
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
			},
			Confidence: 0.5,
			BoundingPoly: &documentaipb.BoundingPoly{
				NormalizedVertices: []*documentaipb.NormalizedVertex{
					{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
				},
			},
		},
	}
}

var _ = Describe("documentPages", func() {
	It("scales normalized token boxes to page pixels", func() {
		doc := &documentaipb.Document{
			Text: "Item Amount\n",
			Pages: []*documentaipb.Document_Page{{
				PageNumber: 1,
				Dimension:  &documentaipb.Document_Page_Dimension{Width: 600, Height: 800},
				Tokens: []*documentaipb.Document_Page_Token{
					token(0, 5, 0.25, 0.125, 0.5, 0.25),
					token(5, 12, 0.5, 0.125, 0.75, 0.25),
				},
			}},
		}

		pages := documentPages(doc)
		Expect(pages).To(HaveLen(1))
		Expect(pages[0].Width).To(Equal(600.0))
		Expect(pages[0].Words).To(HaveLen(2))

		w := pages[0].Words[0]
		Expect(w.Text).To(Equal("Item"))
		Expect(w.XMin).To(BeNumerically("~", 150, 1e-3))
		Expect(w.YMin).To(BeNumerically("~", 100, 1e-3))
		Expect(w.XMax).To(BeNumerically("~", 300, 1e-3))
		Expect(w.YMax).To(BeNumerically("~", 200, 1e-3))
		Expect(w.Confidence).To(BeNumerically("~", 0.5, 1e-6))
		Expect(pages[0].Words[1].Text).To(Equal("Amount"))
	})

	It("returns nothing for a nil document", func() {
		Expect(documentPages(nil)).To(BeEmpty())
	})
})

var _ = Describe("documentAIContent", func() {
	It("passes PNG through unchanged", func() {
		data := testPNG(4, 4)
		content, mime, err := documentAIContent(data, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(mime).To(Equal("image/png"))
		Expect(content).To(Equal(data))
	})

	It("sniffs PDFs served with a generic type", func() {
		_, mime, err := documentAIContent([]byte("%PDF-1.7 ..."), "application/octet-stream")
		Expect(err).NotTo(HaveOccurred())
		Expect(mime).To(Equal("application/pdf"))
	})
})
