package bill

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Integration", func() {
	var (
		db        *BoltDB
		store     *LocalStorage
		scanner   *mockScanner
		appServer *ghttp.Server
		docHost   *ghttp.Server
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()

		var err error
		db, err = NewBoltDB(filepath.Join(dir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err = NewLocalStorage(filepath.Join(dir, "bills"))
		Expect(err).NotTo(HaveOccurred())
		scanner = newMockScanner()

		service := NewService(db, scanner, store, NewHTTPFetcher(5*time.Second, 1<<20), newExtractor(), 2)
		server := NewServer(service, BasicAuth{})

		appServer = ghttp.NewServer()
		docHost = ghttp.NewServer()

		// Two requests: extract, then list the history
		appServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP)
		docHost.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodGet, "/bills/scan.png"),
			ghttp.RespondWith(http.StatusOK, "png bytes", http.Header{"Content-Type": {"image/png"}}),
		))
	})

	AfterEach(func() {
		appServer.Close()
		docHost.Close()
		Expect(db.Close()).To(Succeed())
	})

	It("downloads, extracts and records a bill", func() {
		body := `{"document": "` + docHost.URL() + `/bills/scan.png"}`
		resp, err := http.Post(appServer.URL()+"/extract", "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var envelope Response
		Expect(json.NewDecoder(resp.Body).Decode(&envelope)).To(Succeed())
		Expect(envelope.IsSuccess).To(BeTrue())
		Expect(envelope.Data.TotalItemCount).To(Equal(1))
		Expect(envelope.Data.ReconciledAmount).To(Equal(448.0))
		Expect(scanner.contentType).To(Equal("image/png"))

		listResp, err := http.Get(appServer.URL() + "/api/extractions")
		Expect(err).NotTo(HaveOccurred())
		defer listResp.Body.Close()

		var extractions []*Extraction
		Expect(json.NewDecoder(listResp.Body).Decode(&extractions)).To(Succeed())
		Expect(extractions).To(HaveLen(1))
		Expect(extractions[0].Source).To(Equal(docHost.URL() + "/bills/scan.png"))
		Expect(strings.HasSuffix(extractions[0].Filename, "_scan.png")).To(BeTrue())

		data, err := store.Get(extractions[0].Filename)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("png bytes"))
	})
})
