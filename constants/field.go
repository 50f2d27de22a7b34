package constants

import "strings"

// Field names a searchable or sortable attribute of a receipt record.
type Field string

const (
	FieldVendor    Field = "vendor"
	FieldDate      Field = "transaction_date"
	FieldAmount    Field = "amount"
	FieldCategory  Field = "category"
	FieldRawText   Field = "raw_text"
	FieldCreatedAt Field = "created_at"
)

// ParseField maps a request parameter to a known field, accepting the
// shorthand "date" for transaction_date.
func ParseField(s string) (Field, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "date" {
		return FieldDate, true
	}
	switch f := Field(normalized); f {
	case FieldVendor, FieldDate, FieldAmount, FieldCategory, FieldRawText, FieldCreatedAt:
		return f, true
	}
	return "", false
}
