package action

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Check-in codes are exactly two uppercase letters followed by four digits.
var codePattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{4}$`)

// CodeError reports a check-in code that failed format validation.
// Recoverable: shown inline at the terminal, no state mutation.
type CodeError struct {
	Input string
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("invalid check-in code %q: expected two letters followed by four digits", e.Input)
}

// NormalizeCode canonicalizes raw worker input: Unicode NFC normalization,
// uppercase, and removal of every non-alphanumeric rune. Kiosk keyboards
// and badge scanners produce stray separators (spaces, dashes) that must
// not fail an otherwise valid code.
func NormalizeCode(raw string) string {
	normalized := norm.NFC.String(raw)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range strings.ToUpper(normalized) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseCode normalizes raw input and validates it against the check-in
// code format. Returns the normalized code or a *CodeError.
func ParseCode(raw string) (string, error) {
	code := NormalizeCode(raw)
	if !codePattern.MatchString(code) {
		return "", &CodeError{Input: raw}
	}
	return code, nil
}
