package extraction

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
)

// fieldStep is one entry of the coordinator's dispatch table: it runs an
// extractor and writes its value and confidence onto the record.
type fieldStep struct {
	field constants.Field
	apply func(rec *entity.Record, text string)
}

// Coordinator fans raw receipt text out to the field extractors and
// assembles a record from their answers. Extraction is best-effort: a field
// that cannot be found stays absent with zero confidence, and one empty
// answer never blocks the others. The worst case is a record with every
// optional field absent and category "other".
type Coordinator struct {
	logger   *slog.Logger
	vendor   *VendorExtractor
	date     *DateExtractor
	amount   *AmountExtractor
	category *CategoryExtractor
	fields   []fieldStep
}

func NewCoordinator(cfg common.ExtractionConfig, logger *slog.Logger) *Coordinator {
	c := &Coordinator{
		logger:   logger,
		vendor:   NewVendorExtractor(cfg.VendorScanLines),
		date:     NewDateExtractor(),
		amount:   NewAmountExtractor(),
		category: NewCategoryExtractor(),
	}
	// fixed dispatch table; built once, never mutated afterwards
	c.fields = []fieldStep{
		{constants.FieldVendor, func(rec *entity.Record, text string) {
			rec.Vendor, rec.Confidence.Vendor = c.vendor.Extract(text)
		}},
		{constants.FieldDate, func(rec *entity.Record, text string) {
			rec.TxDate, rec.Confidence.Date = c.date.Extract(text)
		}},
		{constants.FieldAmount, func(rec *entity.Record, text string) {
			rec.Amount, rec.Confidence.Amount = c.amount.Extract(text)
		}},
		{constants.FieldCategory, func(rec *entity.Record, text string) {
			rec.Category, rec.Confidence.Category = c.category.Extract(text)
		}},
	}
	return c
}

// Extract runs every field extractor over the raw text and returns the
// assembled record. A non-empty manual label replaces category detection
// with full confidence; an unknown label is the only error this method can
// return.
func (c *Coordinator) Extract(rawText, manualLabel string) (*entity.Record, error) {
	manual := constants.Other
	hasManual := strings.TrimSpace(manualLabel) != ""
	if hasManual {
		cat, ok := constants.Canonicalize(manualLabel)
		if !ok {
			return nil, common.NewAppError("EXTRACT_INVALID_LABEL",
				"unknown manual label "+strings.TrimSpace(manualLabel), common.ErrValidation)
		}
		manual = cat
	}

	rec := &entity.Record{
		ID:        uuid.New(),
		RawText:   rawText,
		Category:  constants.Other,
		Source:    constants.SourceAutoDetected,
		CreatedAt: time.Now().UTC(),
	}

	text := Normalize(rawText)
	c.logger.Debug("extract.start", "bytes", len(rawText), "manual_label", hasManual)

	for _, step := range c.fields {
		if hasManual && step.field == constants.FieldCategory {
			continue
		}
		step.apply(rec, text)
	}
	if hasManual {
		rec.Category = manual
		rec.Confidence.Category = 1
		rec.Source = constants.SourceManuallyLabeled
	}

	c.logger.Info("extract.ok",
		"record_id", rec.ID,
		"has_vendor", rec.Vendor != nil,
		"has_date", rec.TxDate != nil,
		"has_amount", rec.Amount != nil,
		"category", rec.Category,
		"source", rec.Source)
	return rec, nil
}
