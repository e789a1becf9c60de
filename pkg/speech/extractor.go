// Package speech turns a transcribed Indonesian utterance into a
// structured purchase command.
package speech

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinAmount and MaxAmount bound a plausible pulsa purchase in rupiah.
	MinAmount = 1000
	MaxAmount = 1000000
)

// ErrNoIntent is the Err value when the utterance is not a purchase
// request at all.
const ErrNoIntent = "no intent detected"

// ParsedCommand is the immutable result of parsing one utterance.
type ParsedCommand struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Confidence  int    `json:"confidence"`
	Valid       bool   `json:"valid"`
	Err         string `json:"error,omitempty"`
}

var intentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:beli|isi|top\s*up|topup|tambah|mau\s+beli|tolong\s+isi(?:kan)?)\b.{0,40}?\b(?:pulsa|kredit|saldo)\b`),
	regexp.MustCompile(`(?i)\b(?:pulsa|kredit|saldo)\b.{0,40}?\b(?:beli|isi|top\s*up|topup|tambah)\b`),
}

var purchaseVerbRe = regexp.MustCompile(`(?i)\b(?:beli|isi|top\s*up|topup|tambah)\b`)
var pulsaNounRe = regexp.MustCompile(`(?i)\b(?:pulsa|kredit|saldo)\b`)

// Phrase-anchored patterns run before the bare-digit fallback so that
// "ke nomor 0811..." wins over stray digit runs elsewhere in the text.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:ke\s+)?nomor(?:nya)?\s*:?\s*((?:\+62|62|0)?8[\d\s\-]{8,16})`),
	regexp.MustCompile(`(?i)(?:untuk|ke|di)\s+((?:\+62|62|0)?8[\d\s\-]{8,16})`),
	regexp.MustCompile(`(?i)\b(?:hp|handphone|telepon)\s*:?\s*((?:\+62|62|0)?8[\d\s\-]{8,16})`),
	regexp.MustCompile(`((?:\+62|62|0)?8\d{8,12})`),
}

var phoneShapeRe = regexp.MustCompile(`^(?:\+62|62|0)?8\d{8,12}$`)

// amountWords maps spelled-out amounts to rupiah. Longer phrases come
// first: "dua puluh lima ribu" contains "lima ribu" as a substring.
var amountWords = []struct {
	phrase string
	value  int64
}{
	{"dua puluh lima ribu", 25000},
	{"seratus lima puluh ribu", 150000},
	{"tujuh puluh lima ribu", 75000},
	{"lima puluh ribu", 50000},
	{"dua puluh ribu", 20000},
	{"lima belas ribu", 15000},
	{"sepuluh ribu", 10000},
	{"dua ratus ribu", 200000},
	{"seratus ribu", 100000},
	{"lima ribu", 5000},
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:sebesar|senilai|sejumlah|nominal)\s*(?:rp\.?\s*)?([\d.,]+)`),
	regexp.MustCompile(`(?i)rp\.?\s*([\d.,]+)`),
	regexp.MustCompile(`(?i)(?:pulsa|kredit|saldo)\s+([\d.,]+)\b`),
	regexp.MustCompile(`(?i)\b([\d.,]+)\s*(?:ribu|rb)\b`),
}

var separatorRe = regexp.MustCompile(`[.,\s]`)

// Parse extracts phone number, amount and provider from an utterance.
// Parsing never returns an error: failures surface on the command.
func Parse(utterance string) ParsedCommand {
	text := strings.TrimSpace(utterance)
	if !detectIntent(text) {
		return ParsedCommand{Err: ErrNoIntent}
	}

	cmd := ParsedCommand{}
	phoneRaw, phoneSpan := extractPhoneNumber(text)
	cmd.PhoneNumber = phoneRaw

	// The phone digits must not be mistaken for an amount.
	remainder := text
	if phoneSpan != "" {
		remainder = strings.Replace(text, phoneSpan, " ", 1)
	}
	cmd.Amount = extractAmount(remainder)
	cmd.Provider = extractProvider(text)
	cmd.Confidence = confidence(text, cmd)

	switch {
	case cmd.PhoneNumber == "":
		cmd.Err = "nomor telepon tidak ditemukan"
	case cmd.Amount == 0:
		cmd.Err = "nominal pulsa tidak ditemukan"
	default:
		cmd.Valid = true
	}
	return cmd
}

func detectIntent(text string) bool {
	for _, re := range intentPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// extractPhoneNumber returns the cleaned number and the raw substring it
// was found in, so callers can excise it before amount extraction.
func extractPhoneNumber(text string) (cleaned, span string) {
	for _, re := range phonePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := separatorRe.ReplaceAllString(strings.ReplaceAll(m[1], "-", ""), "")
			if phoneShapeRe.MatchString(candidate) {
				return candidate, m[1]
			}
		}
	}
	return "", ""
}

func extractAmount(text string) int64 {
	lower := strings.ToLower(text)
	for _, w := range amountWords {
		if strings.Contains(lower, w.phrase) {
			return w.value
		}
	}
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := separatorRe.ReplaceAllString(m[1], "")
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		return scaleAmount(n)
	}
	return 0
}

// scaleAmount applies the spoken-amount convention: a bare "50" after
// "pulsa" means 50 thousand rupiah. Amounts outside the purchasable
// range are rejected.
func scaleAmount(n int64) int64 {
	if n < 1000 {
		n *= 1000
	}
	if n < MinAmount || n > MaxAmount {
		return 0
	}
	return n
}

var providerKeywords = []struct {
	provider string
	words    []string
}{
	{"telkomsel", []string{"telkomsel", "simpati", "kartu as"}},
	{"xl", []string{"xl"}},
	{"indosat", []string{"indosat", "ooredoo", "im3", "mentari"}},
	{"tri", []string{" tri ", " three ", " 3 "}},
	{"smartfren", []string{"smartfren", "smart"}},
}

func extractProvider(text string) string {
	lower := " " + strings.ToLower(text) + " "
	for _, p := range providerKeywords {
		for _, w := range p.words {
			if strings.Contains(lower, w) {
				return p.provider
			}
		}
	}
	return ""
}

func confidence(text string, cmd ParsedCommand) int {
	score := 0
	if cmd.PhoneNumber != "" {
		score += 40
	}
	if cmd.Amount > 0 {
		score += 40
	}
	if purchaseVerbRe.MatchString(text) {
		score += 10
	}
	if pulsaNounRe.MatchString(text) {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
