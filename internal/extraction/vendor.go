package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

const defaultVendorScanLines = 5

// Lines containing these never name the store; they are receipt furniture.
var vendorSkipWords = []string{
	"receipt", "total", "amount", "date", "time",
	"description", "price", "tax", "thank", "you",
}

// title-cased store names like "Trader Joe's"; all-caps headers take the
// looksLikeStoreName shortcut instead
var reTitledName = regexp.MustCompile(`^[A-Z][A-Za-z &'\-.]*$`)

// VendorExtractor picks the store name out of the receipt header.
type VendorExtractor struct {
	// ScanLines bounds how deep into the header the scan goes.
	ScanLines int
}

func NewVendorExtractor(scanLines int) *VendorExtractor {
	if scanLines <= 0 {
		scanLines = defaultVendorScanLines
	}
	return &VendorExtractor{ScanLines: scanLines}
}

// Extract returns the longest store-name-like line from the top of the
// receipt, or nil with zero confidence when no line qualifies.
func (e *VendorExtractor) Extract(text string) (*string, float32) {
	lines := nonEmptyLines(Normalize(text))
	limit := e.ScanLines
	if limit > len(lines) {
		limit = len(lines)
	}

	best := ""
	bestIdx := 0
	for i := 0; i < limit; i++ {
		line := lines[i]
		if len(line) < 4 {
			continue
		}
		if containsSkipWord(line) {
			continue
		}
		// item lines carry prices, headers do not
		if reMoney.MatchString(line) {
			continue
		}
		if !looksLikeStoreName(line) {
			continue
		}
		if len(line) > len(best) {
			best = line
			bestIdx = i
		}
	}
	if best == "" {
		return nil, 0
	}
	return &best, vendorConfidence(best, bestIdx)
}

func containsSkipWord(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range vendorSkipWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// looksLikeStoreName accepts printed all-caps headers ("7-ELEVEN") and
// title-cased names ("Trader Joe's"), both letter-dominant.
func looksLikeStoreName(line string) bool {
	letters, digits := 0, 0
	for _, r := range line {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if letters == 0 {
		return false
	}
	// store numbers and street addresses are digit-heavy; names are not
	if digits*10 > (letters+digits)*3 {
		return false
	}

	if line == strings.ToUpper(line) && len(line) > 4 {
		return true
	}
	return reTitledName.MatchString(line)
}

// receipt headers are usually printed in caps at the very top; score by how
// much the line looks like one
func vendorConfidence(line string, idx int) float32 {
	score := float32(0.5)
	if line == strings.ToUpper(line) {
		score += 0.25
	}
	if strings.Contains(line, " ") {
		score += 0.1
	}
	if idx == 0 {
		score += 0.1
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}
