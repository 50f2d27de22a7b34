package analytics_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/analytics"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
)

var _ = Describe("Sort", func() {
	var (
		engine  *analytics.Engine
		records []*entity.Record
	)

	algorithms := []analytics.SortAlgorithm{
		analytics.SortQuick,
		analytics.SortMerge,
		analytics.SortHeap,
		analytics.SortAdaptive,
	}

	BeforeEach(func() {
		engine = newEngine()
		records = []*entity.Record{
			buildRecord("Walmart", 45.67, "2024-01-15", constants.Groceries),
			buildRecord("TARGET", 12.00, "2024-02-01", constants.Shopping),
			buildRecord("walmart", 45.67, "2023-12-31", constants.Groceries),
			buildRecord("", 20.00, "", constants.Other),
			buildRecord("Shell", -1, "2024-01-02", constants.Transport),
			buildRecord("Aldi", 3.99, "2024-01-15", constants.Groceries),
			buildRecord("CVS", 12.00, "2023-11-05", constants.Healthcare),
		}
	})

	When("sorting by amount ascending", func() {
		It("orders values ascending with absent amounts last", func() {
			got, err := engine.Sort(records, constants.FieldAmount, analytics.SortMerge, analytics.Ascending)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 5, 1, 6, 3, 0, 2, 4))))
		})

		It("keeps input order among equal keys", func() {
			got, err := engine.Sort(records, constants.FieldAmount, analytics.SortQuick, analytics.Ascending)
			Expect(err).NotTo(HaveOccurred())
			// records[1] and records[6] share 12.00 and must stay in
			// their original relative order.
			Expect(ids(got[1:3])).To(Equal(ids(pick(records, 1, 6))))
		})
	})

	When("sorting by vendor", func() {
		It("compares names case-insensitively", func() {
			got, err := engine.Sort(records, constants.FieldVendor, analytics.SortHeap, analytics.Ascending)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 5, 6, 4, 1, 0, 2, 3))))
		})
	})

	When("sorting by transaction date", func() {
		It("orders chronologically with undated records last", func() {
			got, err := engine.Sort(records, constants.FieldDate, analytics.SortAdaptive, analytics.Ascending)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(pick(records, 6, 2, 4, 0, 5, 1, 3))))
		})
	})

	When("sorting descending", func() {
		It("returns the exact reverse of the ascending order", func() {
			for _, alg := range algorithms {
				asc, err := engine.Sort(records, constants.FieldAmount, alg, analytics.Ascending)
				Expect(err).NotTo(HaveOccurred())
				desc, err := engine.Sort(records, constants.FieldAmount, alg, analytics.Descending)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(desc)).To(Equal(ids(reversed(asc))), "algorithm %s", alg)
			}
		})
	})

	It("produces identical output across all four algorithms", func() {
		fields := []constants.Field{
			constants.FieldVendor,
			constants.FieldDate,
			constants.FieldAmount,
			constants.FieldCategory,
		}
		for _, field := range fields {
			for _, dir := range []analytics.Direction{analytics.Ascending, analytics.Descending} {
				reference, err := engine.Sort(records, field, analytics.SortMerge, dir)
				Expect(err).NotTo(HaveOccurred())
				for _, alg := range algorithms {
					got, err := engine.Sort(records, field, alg, dir)
					Expect(err).NotTo(HaveOccurred())
					Expect(ids(got)).To(Equal(ids(reference)), "field %s algorithm %s direction %s", field, alg, dir)
				}
			}
		}
	})

	It("does not mutate the input slice", func() {
		before := ids(records)
		_, err := engine.Sort(records, constants.FieldAmount, analytics.SortQuick, analytics.Descending)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(records)).To(Equal(before))
	})

	It("handles empty and single-element input", func() {
		for _, alg := range algorithms {
			got, err := engine.Sort(nil, constants.FieldAmount, alg, analytics.Ascending)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())

			one := records[:1]
			got, err = engine.Sort(one, constants.FieldVendor, alg, analytics.Ascending)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal(ids(one)))
		}
	})

	It("rejects fields that have no ordering", func() {
		_, err := engine.Sort(records, constants.FieldRawText, analytics.SortQuick, analytics.Ascending)
		var ufe *analytics.UnsupportedFieldError
		Expect(errors.As(err, &ufe)).To(BeTrue())
		Expect(ufe.Field).To(Equal(constants.FieldRawText))
	})

	It("rejects unknown algorithms", func() {
		_, err := engine.Sort(records, constants.FieldAmount, analytics.SortAlgorithm("bogosort"), analytics.Ascending)
		Expect(errors.Is(err, common.ErrInvalidInput)).To(BeTrue())
	})
})
