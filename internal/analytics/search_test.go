package analytics_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/analytics"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
)

var _ = Describe("Search", func() {
	var (
		engine  *analytics.Engine
		records []*entity.Record
	)

	BeforeEach(func() {
		engine = newEngine()
		records = []*entity.Record{
			buildRecord("Walmart", 45.67, "2024-01-15", constants.Groceries),
			buildRecord("TARGET", 12.00, "2024-02-01", constants.Shopping),
			buildRecord("walmart", 45.67, "2023-12-31", constants.Groceries),
			buildRecord("", 20.00, "", constants.Other),
			buildRecord("Shell", 8.00, "2024-01-02", constants.Transport),
			buildRecord("CVS", 30.00, "2023-11-05", constants.Healthcare),
		}
	})

	When("searching linearly", func() {
		It("matches substrings case-insensitively and keeps input order", func() {
			got, err := engine.Search(records, analytics.SearchLinear, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "MART",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 2))))
		})

		It("scans vendor, category and raw text when no field is given", func() {
			got, err := engine.Search(records, analytics.SearchLinear, analytics.SearchQuery{
				Keyword: "shopping",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 1))))
		})

		It("returns an empty slice when nothing matches", func() {
			got, err := engine.Search(records, analytics.SearchLinear, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "costco",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got).To(BeEmpty())
		})

		It("rejects non-text fields", func() {
			_, err := engine.Search(records, analytics.SearchLinear, analytics.SearchQuery{
				Field:   constants.FieldAmount,
				Keyword: "12",
			})
			var ufe *analytics.UnsupportedFieldError
			Expect(errors.As(err, &ufe)).To(BeTrue())
			Expect(ufe.Field).To(Equal(constants.FieldAmount))
		})
	})

	When("searching with the binary strategy", func() {
		It("finds every record with the exact value, in input order", func() {
			got, err := engine.Search(records, analytics.SearchBinary, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "Walmart",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 2))))
		})

		It("returns no records for a value that is absent", func() {
			got, err := engine.Search(records, analytics.SearchBinary, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "Aldi",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})

		It("rejects fields without exact-match semantics", func() {
			_, err := engine.Search(records, analytics.SearchBinary, analytics.SearchQuery{
				Field:   constants.FieldRawText,
				Keyword: "receipt",
			})
			var ufe *analytics.UnsupportedFieldError
			Expect(errors.As(err, &ufe)).To(BeTrue())
		})
	})

	When("searching with the hash strategy", func() {
		It("matches exact values case-insensitively", func() {
			got, err := engine.Search(records, analytics.SearchHash, analytics.SearchQuery{
				Field:   constants.FieldCategory,
				Keyword: "Groceries",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 2))))
		})

		It("agrees with linear and binary search on exact keywords", func() {
			query := analytics.SearchQuery{Field: constants.FieldVendor, Keyword: "CVS"}
			linear, err := engine.Search(records, analytics.SearchLinear, query)
			Expect(err).NotTo(HaveOccurred())
			binary, err := engine.Search(records, analytics.SearchBinary, query)
			Expect(err).NotTo(HaveOccurred())
			hash, err := engine.Search(records, analytics.SearchHash, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(hash)).To(Equal(ids(linear)))
			Expect(ids(hash)).To(Equal(ids(binary)))
			Expect(hash).To(HaveLen(1))
		})
	})

	When("searching fuzzily", func() {
		It("tolerates small typos in vendor names", func() {
			got, err := engine.Search(records, analytics.SearchFuzzy, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "WALMRT",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 2))))
		})

		It("does not match beyond the distance threshold", func() {
			got, err := engine.Search(records, analytics.SearchFuzzy, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "COSTCO",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})

	When("searching by pattern", func() {
		It("applies the expression to the selected field", func() {
			got, err := engine.Search(records, analytics.SearchPattern, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Pattern: `(?i)^wal`,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 2))))
		})

		It("reports invalid expressions as pattern errors", func() {
			_, err := engine.Search(records, analytics.SearchPattern, analytics.SearchQuery{
				Pattern: `[unclosed`,
			})
			var pe *analytics.PatternError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Pattern).To(Equal(`[unclosed`))
		})
	})

	When("searching by range", func() {
		It("includes both bounds on amounts", func() {
			lo, hi := 8.00, 30.00
			got, err := engine.Search(records, analytics.SearchRange, analytics.SearchQuery{
				Field:     constants.FieldAmount,
				MinAmount: &lo,
				MaxAmount: &hi,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 1, 3, 4, 5))))
		})

		It("selects only amounts strictly inside a narrow band", func() {
			lo, hi := 15.0, 25.0
			amounts := []*entity.Record{
				buildRecord("A", 10.00, "", constants.Other),
				buildRecord("B", 20.00, "", constants.Other),
				buildRecord("C", 30.00, "", constants.Other),
			}
			got, err := engine.Search(amounts, analytics.SearchRange, analytics.SearchQuery{
				Field:     constants.FieldAmount,
				MinAmount: &lo,
				MaxAmount: &hi,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(*got[0].Amount).To(Equal(20.00))
		})

		It("treats missing bounds as open", func() {
			lo := 40.0
			got, err := engine.Search(records, analytics.SearchRange, analytics.SearchQuery{
				Field:     constants.FieldAmount,
				MinAmount: &lo,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 2))))
		})

		It("filters by transaction date", func() {
			from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
			got, err := engine.Search(records, analytics.SearchRange, analytics.SearchQuery{
				Field:    constants.FieldDate,
				FromDate: &from,
				ToDate:   &to,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 4))))
		})

		It("never matches records missing the ranged field", func() {
			got, err := engine.Search(records, analytics.SearchRange, analytics.SearchQuery{
				Field: constants.FieldAmount,
			})
			Expect(err).NotTo(HaveOccurred())
			// records[3] has no vendor but does have an amount; every
			// record with an amount matches the fully open range.
			Expect(got).To(HaveLen(6))

			from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			got, err = engine.Search(records, analytics.SearchRange, analytics.SearchQuery{
				Field:    constants.FieldDate,
				FromDate: &from,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 0, 1, 2, 4, 5))))
		})

		It("rejects fields that are not ordered", func() {
			_, err := engine.Search(records, analytics.SearchRange, analytics.SearchQuery{
				Field: constants.FieldVendor,
			})
			var ufe *analytics.UnsupportedFieldError
			Expect(errors.As(err, &ufe)).To(BeTrue())
			Expect(ufe.Field).To(Equal(constants.FieldVendor))
		})
	})

	It("rejects unknown strategies", func() {
		_, err := engine.Search(records, analytics.SearchStrategy("psychic"), analytics.SearchQuery{})
		Expect(errors.Is(err, common.ErrInvalidInput)).To(BeTrue())
	})

	It("handles empty input for every strategy", func() {
		strategies := []analytics.SearchStrategy{
			analytics.SearchLinear,
			analytics.SearchBinary,
			analytics.SearchHash,
			analytics.SearchFuzzy,
		}
		for _, strategy := range strategies {
			got, err := engine.Search(nil, strategy, analytics.SearchQuery{
				Field:   constants.FieldVendor,
				Keyword: "anything",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		}
	})
})
