package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/common"
)

// Record represents an analyzed receipt for data transfer between layers.
// Optional fields are nil when extraction found nothing.
type Record struct {
	ID         uuid.UUID             `json:"id"`
	RawText    string                `json:"raw_text"`
	Vendor     *string               `json:"vendor,omitempty"`
	TxDate     *time.Time            `json:"transaction_date,omitempty"`
	Amount     *float64              `json:"amount,omitempty"`
	Category   constants.Category    `json:"category"`
	Confidence FieldConfidence       `json:"confidence"`
	Source     constants.LabelSource `json:"source"`
	CreatedAt  time.Time             `json:"created_at"`
}

// FieldConfidence carries one extraction score per field, each within [0, 1].
type FieldConfidence struct {
	Vendor   float32 `json:"vendor"`
	Date     float32 `json:"date"`
	Amount   float32 `json:"amount"`
	Category float32 `json:"category"`
}

// Patch is a manual correction to a record. Nil fields stay untouched.
type Patch struct {
	Vendor   *string             `json:"vendor,omitempty"`
	TxDate   *time.Time          `json:"transaction_date,omitempty"`
	Amount   *float64            `json:"amount,omitempty"`
	Category *constants.Category `json:"category,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Vendor == nil && p.TxDate == nil && p.Amount == nil && p.Category == nil
}

// Validate checks the record invariants: non-negative amount, taxonomy
// category, confidences within [0, 1], and confidence 1.0 on manually
// labeled categories.
func (r *Record) Validate() error {
	validator := common.NewValidator().
		Field("amount", r.Amount, common.NonNegative).
		Field("category", r.Category, common.TaxonomyMember).
		Field("confidence.vendor", r.Confidence.Vendor, common.UnitInterval).
		Field("confidence.date", r.Confidence.Date, common.UnitInterval).
		Field("confidence.amount", r.Confidence.Amount, common.UnitInterval).
		Field("confidence.category", r.Confidence.Category, common.UnitInterval)
	if err := common.ValidateAndReturnError(validator); err != nil {
		return err
	}

	switch r.Source {
	case constants.SourceAutoDetected, constants.SourceManuallyLabeled:
	default:
		return common.NewAppError("VALIDATION_ERROR", "unknown label source "+string(r.Source), common.ErrValidation)
	}
	if r.Source == constants.SourceManuallyLabeled && r.Confidence.Category != 1 {
		return common.NewAppError("VALIDATION_ERROR", "manually labeled category must carry confidence 1.0", common.ErrValidation)
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	if r.Vendor != nil {
		vendor := *r.Vendor
		out.Vendor = &vendor
	}
	if r.TxDate != nil {
		txDate := *r.TxDate
		out.TxDate = &txDate
	}
	if r.Amount != nil {
		amount := *r.Amount
		out.Amount = &amount
	}
	return &out
}

// ApplyPatch returns a corrected copy of r. Corrected fields are treated as
// ground truth: their confidence becomes 1.0, and a category correction
// marks the record manually labeled. The original record is never modified.
func (r *Record) ApplyPatch(p Patch) (*Record, error) {
	out := r.Clone()

	if p.Vendor != nil {
		vendor := strings.TrimSpace(*p.Vendor)
		if vendor == "" {
			return nil, common.NewAppError("VALIDATION_ERROR", "vendor must not be blank", common.ErrValidation)
		}
		out.Vendor = &vendor
		out.Confidence.Vendor = 1
	}
	if p.TxDate != nil {
		txDate := toDateUTC(*p.TxDate)
		out.TxDate = &txDate
		out.Confidence.Date = 1
	}
	if p.Amount != nil {
		amount := *p.Amount
		out.Amount = &amount
		out.Confidence.Amount = 1
	}
	if p.Category != nil {
		cat, ok := constants.Canonicalize(string(*p.Category))
		if !ok {
			return nil, common.NewAppError("VALIDATION_ERROR",
				"unknown category "+string(*p.Category)+", expected one of "+strings.Join(constants.AsStringSlice(), ", "),
				common.ErrValidation)
		}
		out.Category = cat
		out.Confidence.Category = 1
		out.Source = constants.SourceManuallyLabeled
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// toDateUTC truncates a timestamp to its calendar date at midnight UTC.
// Transaction dates are date-only values.
func toDateUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
