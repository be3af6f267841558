package messaging

import (
	"fmt"
	"regexp"
	"strings"
)

// e164Pattern is the canonical wire shape for recipient numbers: leading +,
// no leading zero, 7-15 total digits. Every number handed to the provider
// must match it.
var (
	e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	digitRuns   = regexp.MustCompile(`\d+`)
)

// NormalizeNumber converts free-form, human-entered phone text into canonical
// E.164. The cleanup and the heuristics that reconstruct a country code are
// intentionally separate from the final pattern check: the heuristics only
// produce a candidate, the pattern alone decides validity.
func NormalizeNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	// Only a + in position 0 is meaningful; any embedded + is noise.
	hasPlus := strings.HasPrefix(trimmed, "+")
	digits := strings.Join(digitRuns.FindAllString(trimmed, -1), "")

	var candidate string
	switch {
	case digits == "":
		return "", fmt.Errorf("%w: no digits in %q", ErrInvalidNumber, raw)
	case hasPlus:
		// Caller already supplied a country code.
		candidate = "+" + digits
	case len(digits) == 10:
		// Bare domestic number, North American default region.
		candidate = "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		candidate = "+" + digits
	case len(digits) >= 11 && len(digits) <= 15:
		// Long enough to already carry a country code.
		candidate = "+" + digits
	default:
		// Too short to reconstruct a country code for, or too long to be
		// a phone number at all.
		return "", fmt.Errorf("%w: %d digits", ErrInvalidNumber, len(digits))
	}

	if !e164Pattern.MatchString(candidate) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, candidate)
	}
	return candidate, nil
}

// IsValidNumber is the non-throwing predicate form of NormalizeNumber.
func IsValidNumber(raw string) bool {
	_, err := NormalizeNumber(raw)
	return err == nil
}
