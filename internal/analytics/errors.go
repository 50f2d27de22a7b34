package analytics

import (
	"fmt"

	"github.com/avelis/receiptlens/constants"
)

// PatternError reports a malformed regular expression handed to the
// pattern strategy.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid search pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// UnsupportedFieldError reports a field with no comparator for the
// requested operation.
type UnsupportedFieldError struct {
	Operation string
	Field     constants.Field
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("field %q is not supported by %s", e.Field, e.Operation)
}
