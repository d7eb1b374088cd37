package layout

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var fourColumns = []ColumnBoundary{
	{Label: ItemName, Start: 0, End: 180},
	{Label: Quantity, Start: 180, End: 365},
	{Label: Rate, Start: 365, End: 470},
	{Label: Amount, Start: 470, End: 600},
}

var _ = Describe("ExtractRow", func() {
	var (
		extractor *Extractor
		row       Row
		item      BillItem
		err       error
	)

	BeforeEach(func() {
		extractor = mustExtractor(DefaultConfig())
	})

	JustBeforeEach(func() {
		item, err = extractor.ExtractRow(row, fourColumns)
	})

	rowOf := func(cells ...any) Row {
		rows := GroupRows(line(140, cells...), 0.25)
		Expect(rows).To(HaveLen(1))
		return rows[0]
	}

	When("every column is filled", func() {
		BeforeEach(func() {
			row = rowOf("Livi", 20, 50, "300mg", 55, 100, "Tab", 105, 130, "14", 305, 320, "32.00", 400, 440, "448.00", 500, 550)
		})

		It("extracts the item", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(item).To(Equal(BillItem{
				ItemName:     "Livi 300mg Tab",
				ItemQuantity: 14,
				ItemRate:     32,
				ItemAmount:   448,
			}))
		})
	})

	When("the quantity is missing", func() {
		BeforeEach(func() {
			row = rowOf("Syrup", 20, 60, "45.50", 400, 440, "45.50", 500, 550)
		})

		It("defaults it to one", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(item.ItemQuantity).To(BeNumerically("==", 1))
			Expect(item.ItemRate).To(BeNumerically("==", 45.5))
		})
	})

	When("only the amount is printed", func() {
		BeforeEach(func() {
			row = rowOf("Consultation", 20, 120, "500", 500, 530)
		})

		It("uses the amount as the rate", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(item).To(Equal(BillItem{ItemName: "Consultation", ItemQuantity: 1, ItemRate: 500, ItemAmount: 500}))
		})
	})

	When("the amount is missing but quantity and rate are present", func() {
		BeforeEach(func() {
			row = rowOf("Gauze", 20, 60, "2", 305, 315, "10.00", 400, 440)
		})

		It("drops the row instead of computing the amount", func() {
			Expect(err).To(MatchError(ErrMissingAmount))
			Expect(item).To(Equal(BillItem{}))
		})
	})

	When("the quantity cell holds a dash", func() {
		BeforeEach(func() {
			row = rowOf("Gauze", 20, 60, "-", 305, 310, "20", 500, 520)
		})

		It("treats it as blank", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(item.ItemQuantity).To(BeNumerically("==", 1))
			Expect(item.ItemAmount).To(BeNumerically("==", 20))
		})
	})

	When("a numeric cell is garbage", func() {
		BeforeEach(func() {
			row = rowOf("Gauze", 20, 60, "abc", 305, 330, "10", 400, 420, "20", 500, 520)
		})

		It("fails with a NumericParseError naming the column", func() {
			var parseErr *NumericParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Column).To(Equal(Quantity))
			Expect(parseErr.Text).To(Equal("abc"))
		})
	})

	When("neither amount nor rate is present", func() {
		BeforeEach(func() {
			row = rowOf("Gauze", 20, 60, "2", 305, 315)
		})

		It("returns ErrMissingAmount", func() {
			Expect(err).To(MatchError(ErrMissingAmount))
		})
	})

	When("the name column is empty", func() {
		BeforeEach(func() {
			row = rowOf("2", 305, 315, "10", 400, 420, "20", 500, 520)
		})

		It("returns ErrMissingName", func() {
			Expect(err).To(MatchError(ErrMissingName))
		})
	})

	When("a second figure bleeds into the amount column", func() {
		BeforeEach(func() {
			row = rowOf("Gauze", 20, 60, "500.00", 480, 520, "50.00", 530, 570)
		})

		It("keeps the first figure", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(item.ItemAmount).To(BeNumerically("==", 500))
		})
	})

	When("the name carries a serial number", func() {
		BeforeEach(func() {
			row = rowOf("1.", 0, 10, "Livi", 20, 50, "448.00", 500, 550)
		})

		It("strips it", func() {
			Expect(item.ItemName).To(Equal("Livi"))
		})
	})
})

var _ = Describe("assignColumn", func() {
	It("assigns a word straddling two columns when the overlap is large enough", func() {
		idx, ok := assignColumn(word("x", 150, 0, 210, 10), fourColumns, 0.5)
		Expect(ok).To(BeTrue())
		Expect(idx).To(Equal(0))
	})

	It("leaves a straddling word unassigned under a stricter overlap", func() {
		_, ok := assignColumn(word("x", 150, 0, 210, 10), fourColumns, 0.6)
		Expect(ok).To(BeFalse())
	})

	It("places a zero-width word by its position", func() {
		idx, ok := assignColumn(word("x", 200, 0, 200, 10), fourColumns, 0.5)
		Expect(ok).To(BeTrue())
		Expect(idx).To(Equal(1))
	})

	It("rejects a word outside every column", func() {
		_, ok := assignColumn(word("x", 700, 0, 720, 10), fourColumns, 0.5)
		Expect(ok).To(BeFalse())
	})
})

var _ = DescribeTable("ParseAmount",
	func(in string, want float64) {
		got, err := ParseAmount(in)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNumerically("~", want, 1e-9))
	},
	Entry("plain decimal", "448.00", 448.0),
	Entry("integer", "14", 14.0),
	Entry("letter O for zero", "448,OO", 448.0),
	Entry("letter l for one", "l4", 14.0),
	Entry("lakh grouping", "1,23,456", 123456.0),
	Entry("thousands and decimals", "1,234,567.89", 1234567.89),
	Entry("european decimals", "1.234,56", 1234.56),
	Entry("comma thousands", "1,200", 1200.0),
	Entry("rupee prefix", "Rs. 448.00", 448.0),
	Entry("currency code", "INR 100", 100.0),
	Entry("currency symbol", "₹1,200", 1200.0),
	Entry("parenthesized negative", "(12.50)", -12.5),
	Entry("trailing minus", "12.50-", -12.5),
	Entry("leading decimal point", ".5", 0.5),
	Entry("trailing dot", "32.", 32.0),
	Entry("rupee only suffix", "448.00/-", 448.0),
	Entry("rupee only suffix with grouping", "Rs.1,200/-", 1200.0),
)

var _ = DescribeTable("ParseAmount rejects",
	func(in string) {
		_, err := ParseAmount(in)
		Expect(err).To(HaveOccurred())
	},
	Entry("empty", ""),
	Entry("words", "Tab"),
	Entry("trailing letters", "12a"),
	Entry("two numbers run together", "500.000.00"),
	Entry("bad comma grouping", "1,2,3"),
)
