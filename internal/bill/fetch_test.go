package bill

import (
	"context"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("HTTPFetcher", func() {
	var (
		server  *ghttp.Server
		fetcher *HTTPFetcher
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		fetcher = NewHTTPFetcher(5*time.Second, 1024)
	})

	AfterEach(func() {
		server.Close()
	})

	When("the document is served", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/scans/bill.png"),
				ghttp.VerifyHeaderKV("User-Agent", browserUserAgent),
				ghttp.RespondWith(http.StatusOK, "png bytes", http.Header{"Content-Type": {"image/png"}}),
			))
		})

		It("returns the body and content type", func() {
			data, contentType, err := fetcher.Fetch(context.Background(), server.URL()+"/scans/bill.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("png bytes"))
			Expect(contentType).To(Equal("image/png"))
		})
	})

	When("the server sends no useful content type", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "%PDF-1.4 body",
				http.Header{"Content-Type": {"application/octet-stream"}}))
		})

		It("sniffs it from the body", func() {
			_, contentType, err := fetcher.Fetch(context.Background(), server.URL()+"/bill")
			Expect(err).NotTo(HaveOccurred())
			Expect(contentType).To(Equal("application/pdf"))
		})
	})

	When("the server returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "not found"))
		})

		It("fails with the status", func() {
			_, _, err := fetcher.Fetch(context.Background(), server.URL()+"/missing.png")
			Expect(err).To(MatchError(ContainSubstring("unexpected status 404")))
		})
	})

	When("the document is larger than the limit", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, strings.Repeat("x", 2048)))
		})

		It("fails with ErrTooLarge", func() {
			_, _, err := fetcher.Fetch(context.Background(), server.URL()+"/big.png")
			Expect(err).To(MatchError(ErrTooLarge))
		})
	})

	DescribeTable("rejects URLs it cannot download",
		func(rawURL string) {
			_, _, err := fetcher.Fetch(context.Background(), rawURL)
			Expect(err).To(MatchError(ErrInvalidURL))
		},
		Entry("relative path", "/bill.png"),
		Entry("file scheme", "file:///etc/passwd"),
		Entry("ftp scheme", "ftp://example.com/bill.png"),
		Entry("no host", "http://"),
		Entry("garbage", "::not a url"),
	)
})
