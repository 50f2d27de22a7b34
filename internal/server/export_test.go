package server_test

import (
	"bytes"
	"encoding/csv"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Export API", func() {
	var router *gin.Engine

	BeforeEach(func() {
		router, _ = newAPI()
		seedReceipt(router, walmartReceipt, "")
		seedReceipt(router, shellReceipt, "")
	})

	readCSV := func(body []byte) [][]string {
		rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	It("serves a CSV attachment", func() {
		w := doJSON(router, http.MethodGet, "/api/v1/export?format=csv", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(".csv"))

		rows := readCSV(w.Body.Bytes())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0][0]).To(Equal("Transaction Date"))
		Expect(rows[1][1]).To(Equal("WALMART"))
		Expect(rows[2][1]).To(Equal("SHELL"))
	})

	It("defaults to a workbook", func() {
		w := doJSON(router, http.MethodGet, "/api/v1/export", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("application/vnd.openxmlformats"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))

		book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		defer book.Close()

		rows, err := book.GetRows("Records")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0][1]).To(Equal("Vendor"))
		Expect(rows[1][1]).To(Equal("WALMART"))
	})

	It("applies the category filter", func() {
		w := doJSON(router, http.MethodGet, "/api/v1/export?format=csv&category=transport", nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		rows := readCSV(w.Body.Bytes())
		Expect(rows).To(HaveLen(2))
		Expect(rows[1][1]).To(Equal("SHELL"))
	})

	It("applies the date window", func() {
		w := doJSON(router, http.MethodGet, "/api/v1/export?format=csv&from=2024-01-01&to=2024-12-31", nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		rows := readCSV(w.Body.Bytes())
		Expect(rows).To(HaveLen(2))
		Expect(rows[1][1]).To(Equal("WALMART"))
	})

	It("rejects an unknown format", func() {
		w := doJSON(router, http.MethodGet, "/api/v1/export?format=pdf", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
