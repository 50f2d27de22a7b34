package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// currency-shaped tokens: a $ prefix, or a cents part
	reMoney = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\$\s?\d+(?:\.\d{1,2})?|\b\d{1,3}(?:,\d{3})+\.\d{2}\b|\b\d+\.\d{2}\b`)
	// total lines also accept plain numbers ("TOTAL 46")
	reBareNum = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?\b|\b\d+(?:\.\d{1,2})?\b`)
	// \b keeps "subtotal" from counting as a total line
	reTotalKeyword = regexp.MustCompile(`(?i)\b(?:grand\s+total|amount\s+due|balance\s+due|total)\b`)

	moneyCleaner = strings.NewReplacer("$", "", ",", "", " ", "")
)

// AmountExtractor finds the transaction total in receipt text.
type AmountExtractor struct{}

func NewAmountExtractor() *AmountExtractor {
	return &AmountExtractor{}
}

// Extract prefers the largest amount on a total-keyword line; without one
// it falls back to the largest currency-shaped token above one dollar,
// which skips quantity and unit-price columns. Returns nil with zero
// confidence when the text carries no usable amount.
func (e *AmountExtractor) Extract(text string) (*float64, float32) {
	var keywordBest, overallBest *float64

	for _, line := range nonEmptyLines(Normalize(text)) {
		onTotal := reTotalKeyword.MatchString(line)
		for _, amt := range moneyTokens(line, onTotal) {
			if onTotal {
				keywordBest = maxAmount(keywordBest, amt)
			} else if amt > 1.00 {
				overallBest = maxAmount(overallBest, amt)
			}
		}
	}

	if keywordBest != nil {
		return keywordBest, 0.9
	}
	if overallBest != nil {
		return overallBest, 0.5
	}
	return nil, 0
}

// moneyTokens parses the candidate amounts on one line. acceptBare widens
// the match to plain numbers for total-keyword lines.
func moneyTokens(line string, acceptBare bool) []float64 {
	re := reMoney
	if acceptBare {
		re = reBareNum
	}

	var out []float64
	for _, loc := range re.FindAllStringIndex(line, -1) {
		// skip percentages and date or decimal fragments
		if loc[1] < len(line) && strings.ContainsRune("%/.-", rune(line[loc[1]])) {
			continue
		}
		if loc[0] > 0 && strings.ContainsRune("/.,-", rune(line[loc[0]-1])) {
			continue
		}
		value, err := strconv.ParseFloat(moneyCleaner.Replace(line[loc[0]:loc[1]]), 64)
		if err != nil || value < 0 {
			continue
		}
		out = append(out, value)
	}
	return out
}

func maxAmount(current *float64, candidate float64) *float64 {
	if current == nil || candidate > *current {
		return &candidate
	}
	return current
}
