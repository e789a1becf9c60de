package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)

// SetEnabled toggles PII redaction.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts phone numbers embedded in free text when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	return phoneRe.ReplaceAllString(in, "[REDACTED_PHONE]")
}

// Phone masks a customer number for log output, keeping the prefix and
// the last two digits. Disabled redaction returns the input unchanged.
func Phone(number string) string {
	if !enabled.Load() {
		return number
	}
	n := strings.TrimSpace(number)
	if len(n) <= 6 {
		return "****"
	}
	return n[:4] + strings.Repeat("*", len(n)-6) + n[len(n)-2:]
}
