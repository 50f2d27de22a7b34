package server_test

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avelis/receiptlens/internal/analytics"
	"github.com/avelis/receiptlens/internal/utils"
)

var _ = Describe("Analytics API", func() {
	var router *gin.Engine

	BeforeEach(func() {
		router, _ = newAPI()
		seedReceipt(router, walmartReceipt, "")
		seedReceipt(router, shellReceipt, "")
		seedReceipt(router, targetReceipt, "")
	})

	Describe("GET /api/v1/search", func() {
		It("defaults to the linear strategy", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?keyword=walmart", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"WALMART"}))
		})

		It("answers exact category probes via the hash strategy", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=hash&field=category&keyword=transport", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"SHELL"}))
		})

		It("filters amounts by inclusive bounds", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=range&field=amount&min_amount=20&max_amount=40", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"SHELL"}))
		})

		It("finds near misses via the fuzzy strategy", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=fuzzy&field=vendor&keyword=WALMRT", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"WALMART"}))
		})

		It("rejects a broken pattern", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=pattern&pattern="+url.QueryEscape("[unclosed"), nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a text strategy on a numeric field", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=linear&field=amount&keyword=45", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown strategy", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=psychic", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown field", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?field=color&keyword=x", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed bound", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/search?strategy=range&field=amount&min_amount=lots", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/v1/sort", func() {
		It("sorts by amount ascending by default", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/sort?field=amount", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"TARGET", "SHELL", "WALMART"}))
		})

		It("mirrors the order on descending", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/sort?field=amount&direction=desc&algorithm=heapsort", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"WALMART", "SHELL", "TARGET"}))
		})

		It("ranks undated records last on ascending date", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/sort?field=date&algorithm=quicksort", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(vendors(decodeDTOs(w))).To(Equal([]string{"WALMART", "TARGET", "SHELL"}))
		})

		It("requires a field", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/sort", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects sorting on raw text", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/sort?field=raw_text", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown algorithm", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/sort?field=amount&algorithm=bogosort", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/v1/query", func() {
		It("runs filter, sort and aggregate in one call", func() {
			w := doJSON(router, http.MethodPost, "/api/v1/query", gin.H{
				"min_amount": 20,
				"sort_field": "amount",
				"direction":  "desc",
				"aggregate":  true,
				"window":     2,
			})
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Records []utils.RecordDTO  `json:"records"`
				Summary *analytics.Summary `json:"summary"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(vendors(resp.Records)).To(Equal([]string{"WALMART", "SHELL"}))
			Expect(resp.Summary).NotTo(BeNil())
			Expect(resp.Summary.TotalRecords).To(Equal(2))
			Expect(resp.Summary.Statistics.Count).To(Equal(2))
			Expect(resp.Summary.Statistics.Sum).To(BeNumerically("~", 75.67, 0.001))
			Expect(resp.Summary.Window).To(Equal(2))
		})

		It("keeps the summary off unless asked", func() {
			w := doJSON(router, http.MethodPost, "/api/v1/query", gin.H{"keyword": "walmart"})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decodeMap(w)).NotTo(HaveKey("summary"))
		})

		It("rejects a broken pattern", func() {
			w := doJSON(router, http.MethodPost, "/api/v1/query", gin.H{"pattern": "("})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects unknown body properties", func() {
			w := doJSON(router, http.MethodPost, "/api/v1/query", gin.H{"keywrd": "walmart"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeMap(w)["code"]).To(Equal("SCHEMA_VIOLATION"))
		})

		It("rejects a non-integer window", func() {
			w := doJSON(router, http.MethodPost, "/api/v1/query", gin.H{"window": 2.5})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/v1/stats", func() {
		It("aggregates the whole store", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/stats", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var summary analytics.Summary
			Expect(json.Unmarshal(w.Body.Bytes(), &summary)).To(Succeed())
			Expect(summary.TotalRecords).To(Equal(3))
			Expect(summary.Undated).To(Equal(1))
			Expect(summary.Window).To(Equal(3))
			Expect(summary.Statistics.Count).To(Equal(3))
			Expect(summary.ByCategory).To(HaveLen(3))
			Expect(summary.Monthly).To(HaveLen(2))
		})

		It("honors the window parameter", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/stats?window=5", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var summary analytics.Summary
			Expect(json.Unmarshal(w.Body.Bytes(), &summary)).To(Succeed())
			Expect(summary.Window).To(Equal(5))
		})

		It("rejects a non-positive window", func() {
			w := doJSON(router, http.MethodGet, "/api/v1/stats?window=0", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
