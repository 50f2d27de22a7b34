package utils

import (
	"time"

	"github.com/avelis/receiptlens/internal/entity"
)

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// RecordDTO is the wire shape of a record: transaction dates as
// YYYY-MM-DD, timestamps as RFC 3339.
type RecordDTO struct {
	ID         string                 `json:"id"`
	RawText    string                 `json:"raw_text"`
	Vendor     string                 `json:"vendor,omitempty"`
	TxDate     string                 `json:"transaction_date,omitempty"`
	Amount     *float64               `json:"amount,omitempty"`
	Category   string                 `json:"category"`
	Confidence entity.FieldConfidence `json:"confidence"`
	Source     string                 `json:"source"`
	CreatedAt  string                 `json:"created_at"`
}

func ToRecordDTO(r *entity.Record) *RecordDTO {
	dto := &RecordDTO{
		ID:         r.ID.String(),
		RawText:    r.RawText,
		Vendor:     strOrEmpty(r.Vendor),
		Category:   string(r.Category),
		Confidence: r.Confidence,
		Source:     string(r.Source),
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.TxDate != nil {
		dto.TxDate = r.TxDate.Format("2006-01-02")
	}
	if r.Amount != nil {
		a := *r.Amount
		dto.Amount = &a
	}
	return dto
}

func ToRecordDTOs(records []*entity.Record) []*RecordDTO {
	out := make([]*RecordDTO, len(records))
	for i, r := range records {
		out[i] = ToRecordDTO(r)
	}
	return out
}

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
