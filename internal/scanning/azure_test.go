package scanning

import (
	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/bill-extractor/internal/layout"
)

func strPtr(s string) *string { return &s }

var _ = Describe("azureWords", func() {
	It("flattens regions and lines into word boxes", func() {
		result := computervision.OcrResult{
			Regions: &[]computervision.OcrRegion{{
				Lines: &[]computervision.OcrLine{
					{Words: &[]computervision.OcrWord{
						{BoundingBox: strPtr("20,100,40,20"), Text: strPtr("Item")},
						{BoundingBox: strPtr("500,100,60,20"), Text: strPtr("Amount")},
					}},
					{Words: &[]computervision.OcrWord{
						{BoundingBox: strPtr("bad"), Text: strPtr("skip")},
						{BoundingBox: strPtr("20,140,30,20"), Text: nil},
					}},
				},
			}},
		}

		Expect(azureWords(result)).To(Equal([]layout.WordBox{
			{Text: "Item", XMin: 20, YMin: 100, XMax: 60, YMax: 120, Confidence: 1},
			{Text: "Amount", XMin: 500, YMin: 100, XMax: 560, YMax: 120, Confidence: 1},
		}))
	})

	It("handles an empty result", func() {
		Expect(azureWords(computervision.OcrResult{})).To(BeEmpty())
	})
})
