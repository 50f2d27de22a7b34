package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xuri/excelize/v2"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/export"
	"github.com/avelis/receiptlens/internal/repository"
)

var _ = Describe("Service", func() {
	var (
		ctx   context.Context
		store *repository.MemoryStore
		svc   *export.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = repository.NewMemoryStore()
		svc = export.NewService(store, discardLogger())

		seedRecord(ctx, store, 0, "Walmart", 45.67, "2024-01-15", constants.Groceries)
		seedRecord(ctx, store, 1, "Shell", 30.00, "2024-02-02", constants.Transport)
		seedRecord(ctx, store, 2, "", -1, "", constants.Other)
	})

	It("writes CSV with one row per record", func() {
		data, name, err := svc.Export(ctx, "csv", repository.ListFilter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(HavePrefix("records-"))
		Expect(name).To(HaveSuffix(".csv"))

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[0]).To(Equal([]string{
			"Transaction Date", "Vendor", "Category", "Amount", "Label Source", "Receipt Text",
		}))
		Expect(rows[1]).To(Equal([]string{
			"2024-01-15", "Walmart", "groceries", "45.67", "auto_detected", "Walmart receipt text",
		}))
	})

	It("leaves absent fields blank in CSV", func() {
		data, _, err := svc.Export(ctx, "csv", repository.ListFilter{})
		Expect(err).NotTo(HaveOccurred())

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		last := rows[3]
		Expect(last[0]).To(BeEmpty())
		Expect(last[1]).To(BeEmpty())
		Expect(last[3]).To(BeEmpty())
		Expect(last[2]).To(Equal("other"))
	})

	It("defaults to an XLSX workbook", func() {
		data, name, err := svc.Export(ctx, "", repository.ListFilter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(HaveSuffix(".xlsx"))

		f, err := excelize.OpenReader(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows("Records")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[0][0]).To(Equal("Transaction Date"))

		cell, err := f.GetCellValue("Records", "B2")
		Expect(err).NotTo(HaveOccurred())
		Expect(cell).To(Equal("Walmart"))
	})

	It("applies the list filter", func() {
		data, _, err := svc.Export(ctx, "csv", repository.ListFilter{Category: constants.Transport})
		Expect(err).NotTo(HaveOccurred())

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[1][1]).To(Equal("Shell"))
	})

	It("truncates very long receipt text", func() {
		long := seedRecord(ctx, store, 3, "Costco", 99.00, "2024-03-03", constants.Groceries)
		long.RawText = strings.Repeat("BULK ITEM 42 ", 30)
		Expect(store.Update(ctx, long)).To(Succeed())

		data, _, err := svc.Export(ctx, "csv", repository.ListFilter{})
		Expect(err).NotTo(HaveOccurred())

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		text := rows[4][5]
		Expect(text).To(HaveSuffix("…"))
		Expect(len(text)).To(BeNumerically("<", len(long.RawText)))
	})

	It("rejects unknown formats", func() {
		_, _, err := svc.Export(ctx, "pdf", repository.ListFilter{})
		Expect(errors.Is(err, common.ErrInvalidInput)).To(BeTrue())
	})
})
