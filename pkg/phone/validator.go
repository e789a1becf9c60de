// Package phone normalizes Indonesian mobile numbers and resolves the
// owning carrier from their numeric prefix.
package phone

import (
	"regexp"
	"strings"
)

// Validation is the outcome of validating a raw customer number.
type Validation struct {
	Normalized string `json:"normalized,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

var (
	nonDialRe = regexp.MustCompile(`[^\d+]`)
	digitsRe  = regexp.MustCompile(`\D`)
	shapeRe   = regexp.MustCompile(`^(?:\+62|62|0)?8\d{8,12}$`)
)

// carrierPrefixes maps each carrier to the two-digit prefixes it owns
// after the leading "08". Order matters: the first match wins.
var carrierPrefixes = []struct {
	name     string
	prefixRe *regexp.Regexp
}{
	{"telkomsel", regexp.MustCompile(`^08(11|12|13|21|22|23|51|52|53)`)},
	{"xl", regexp.MustCompile(`^08(17|18|19|59|77|78)`)},
	{"indosat", regexp.MustCompile(`^08(14|15|16|55|56|57|58)`)},
	{"tri", regexp.MustCompile(`^08(95|96|97|98|99)`)},
	{"smartfren", regexp.MustCompile(`^08(81|82|83|84|85|86|87|88|89)`)},
}

// Normalize strips everything but digits and a leading plus, then folds
// the +62/62 country prefix down to the domestic 0 form. Idempotent.
func Normalize(raw string) string {
	n := nonDialRe.ReplaceAllString(raw, "")
	switch {
	case strings.HasPrefix(n, "+62"):
		n = "0" + n[3:]
	case strings.HasPrefix(n, "62"):
		n = "0" + n[2:]
	}
	n = digitsRe.ReplaceAllString(n, "")
	if n != "" && !strings.HasPrefix(n, "0") {
		n = "0" + n
	}
	return n
}

// Classify resolves the carrier for a normalized number. The prefix table
// is authoritative: a number can pass the generic mobile shape and still
// belong to no carrier, in which case the empty string is returned.
func Classify(normalized string) string {
	for _, c := range carrierPrefixes {
		if c.prefixRe.MatchString(normalized) {
			return c.name
		}
	}
	return ""
}

// Validate shape-checks the raw input, then normalizes and classifies it.
// Failures carry a human-readable reason for the caller to surface.
func Validate(raw string) Validation {
	compact := strings.TrimSpace(raw)
	if compact == "" {
		return Validation{Reason: "nomor telepon kosong"}
	}
	digits := digitsRe.ReplaceAllString(compact, "")
	if len(digits) < 10 || len(digits) > 15 {
		return Validation{Reason: "panjang nomor harus 10-15 digit"}
	}
	stripped := strings.ReplaceAll(compact, " ", "")
	stripped = strings.ReplaceAll(stripped, "-", "")
	if !shapeRe.MatchString(stripped) {
		return Validation{Reason: "bukan nomor seluler Indonesia yang valid"}
	}
	normalized := Normalize(compact)
	provider := Classify(normalized)
	if provider == "" {
		return Validation{Normalized: normalized, Reason: "prefix operator tidak dikenali"}
	}
	return Validation{Normalized: normalized, Provider: provider, Valid: true}
}
