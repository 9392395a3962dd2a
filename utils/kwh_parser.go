package utils

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	kwhLinePattern = regexp.MustCompile(`(?i)k\s*w\s*h`)
	// The number in front of the kWh unit, optionally parenthesized:
	// "207,624kWh", "284,077 k Wh", "2,915 (kWh)".
	kwhValuePattern = regexp.MustCompile(`(?i)([\d\s,.]+)\s*[(\[]?\s*k\s*w\s*h`)
	nonDigitComma   = regexp.MustCompile(`[^0-9,]`)

	textNormalizer = strings.NewReplacer(
		"、", ",",
		"　", " ",
		"\r\n", "\n",
		"\r", "\n",
	)
)

// Monthly readings are at least four digits; anything smaller next to a
// kWh unit is a per-day figure or a page artifact.
const minKWhValue = 1000

// ExtractKWh pulls the monthly usage reading out of OCR text. Full-width
// characters are normalized first, then every line mentioning kWh is
// scanned for a numeric candidate. When several candidates survive
// filtering the largest wins: the invoice total dominates its own line
// items. Returns "" when no usable value is found.
func ExtractKWh(text string) string {
	normalized := textNormalizer.Replace(width.Narrow.String(text))

	best := 0
	for _, line := range strings.Split(normalized, "\n") {
		if !kwhLinePattern.MatchString(line) {
			continue
		}
		m := kwhValuePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		// "284 077" and "14, 662" are OCR artifacts of "284,077" and
		// "14,662"; collapse spaces before stripping the commas.
		raw := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
		raw = nonDigitComma.ReplaceAllString(raw, "")
		raw = strings.ReplaceAll(raw, ",", "")
		if raw == "" {
			continue
		}

		v, err := strconv.Atoi(raw)
		if err != nil || v < minKWhValue {
			continue
		}
		if v > best {
			best = v
		}
	}

	if best == 0 {
		return ""
	}
	return strconv.Itoa(best)
}
