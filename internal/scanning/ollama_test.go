package scanning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/bill-extractor/internal/layout"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
		pages   []Page
		err     error
		request ollamaChatRequest
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		scanner, newErr = NewOllama(server.URL(), "qwen2.5vl")
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		pages, err = scanner.ScanPages(context.Background(), testPNG(600, 800), "image/png")
	})

	When("the model returns word boxes", func() {
		BeforeEach(func() {
			content := "```json\n[{\"text\": \"Item\", \"x_min\": 20, \"y_min\": 100, \"x_max\": 60, \"y_max\": 120, \"confidence\": 0.9}]\n```"
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyHeaderKV("Content-Type", "application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					Expect(json.Unmarshal(body, &request)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: content},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns one page sized like the image", func() {
			Expect(pages).To(HaveLen(1))
			Expect(pages[0].Number).To(Equal(1))
			Expect(pages[0].Width).To(Equal(600.0))
			Expect(pages[0].Height).To(Equal(800.0))
		})

		It("returns the parsed words", func() {
			Expect(pages[0].Words).To(Equal([]layout.WordBox{
				{Text: "Item", XMin: 20, YMin: 100, XMax: 60, YMax: 120, Confidence: 0.9},
			}))
		})

		It("sends the image with the user message", func() {
			Expect(request.Model).To(Equal("qwen2.5vl"))
			Expect(request.Stream).To(BeFalse())
			Expect(request.Messages).To(HaveLen(2))
			Expect(request.Messages[1].Images).To(HaveLen(1))
			Expect(request.Messages[1].Content).To(ContainSubstring("600 pixels wide and 800 pixels tall"))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I cannot read this image."},
				Done:    true,
			}))
		})

		It("returns a parse error naming the page", func() {
			Expect(err).To(MatchError(ContainSubstring("scanning page 1")))
			Expect(err).To(MatchError(ContainSubstring("no JSON array")))
		})
	})
})
