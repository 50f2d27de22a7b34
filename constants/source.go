package constants

// LabelSource records how a record's category was assigned.
type LabelSource string

// Stable values (store these exact strings in DB).
const (
	SourceAutoDetected    LabelSource = "auto_detected"    // extractor output
	SourceManuallyLabeled LabelSource = "manually_labeled" // user-supplied label
)
