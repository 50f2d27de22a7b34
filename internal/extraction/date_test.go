package extraction_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avelis/receiptlens/internal/extraction"
)

var _ = Describe("DateExtractor", func() {
	var extractor *extraction.DateExtractor

	BeforeEach(func() {
		extractor = extraction.NewDateExtractor()
		extractor.Now = func() time.Time {
			return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
		}
	})

	expectDate := func(text string, y int, m time.Month, d int) float32 {
		GinkgoHelper()
		got, confidence := extractor.Extract(text)
		Expect(got).NotTo(BeNil())
		Expect(*got).To(Equal(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)))
		return confidence
	}

	It("reads ISO dates with the highest confidence", func() {
		confidence := expectDate("STORE\n2024-01-15\nTOTAL 5.00", 2024, time.January, 15)
		Expect(confidence).To(BeNumerically("~", 0.95, 0.001))
	})

	It("reads US slash dates", func() {
		confidence := expectDate("WALMART\n01/15/2024\nTOTAL $45.67", 2024, time.January, 15)
		Expect(confidence).To(BeNumerically("~", 0.9, 0.001))
	})

	It("reads dashed and dotted numeric dates", func() {
		expectDate("receipt 03-09-2024", 2024, time.March, 9)
		expectDate("receipt 03.09.2024", 2024, time.March, 9)
	})

	It("reads textual month dates", func() {
		expectDate("Visited January 15, 2024", 2024, time.January, 15)
		expectDate("Visited Jan 15 2024", 2024, time.January, 15)
		expectDate("Visited 15 January 2024", 2024, time.January, 15)
	})

	It("expands two-digit years to 20xx with reduced confidence", func() {
		confidence := expectDate("date 01/15/24", 2024, time.January, 15)
		Expect(confidence).To(BeNumerically("~", 0.6, 0.001))
	})

	It("assumes the current year for yearless shorthand", func() {
		confidence := expectDate("lunch 03/07", 2024, time.March, 7)
		Expect(confidence).To(BeNumerically("~", 0.4, 0.001))
	})

	It("prefers the more specific pattern when both would match", func() {
		// the yearless pattern must not swallow the prefix of a full date
		confidence := expectDate("01/15/2024", 2024, time.January, 15)
		Expect(confidence).To(BeNumerically("~", 0.9, 0.001))
	})

	It("rejects impossible calendar dates instead of clamping", func() {
		got, confidence := extractor.Extract("date 13/45/2024")
		Expect(got).To(BeNil())
		Expect(confidence).To(BeZero())
	})

	It("rejects February 30th", func() {
		got, _ := extractor.Extract("02/30/2024")
		Expect(got).To(BeNil())
	})

	It("skips an invalid match and takes a later valid one", func() {
		expectDate("register 99/99/2024 printed 01/15/2024", 2024, time.January, 15)
	})

	It("returns nil with zero confidence when no date is present", func() {
		got, confidence := extractor.Extract("no dates here")
		Expect(got).To(BeNil())
		Expect(confidence).To(BeZero())
	})
})
