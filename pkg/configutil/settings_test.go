package configutil

import (
	"strings"
	"testing"
)

func TestValidateSettingsMissingAndUnknown(t *testing.T) {
	schema := Schema{Required: []string{"phone_number", "amount"}, Optional: []string{"provider"}}
	err := ValidateSettings(map[string]any{
		"amount": 50000,
		"bogus":  true,
	}, schema)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "missing: phone_number") {
		t.Fatalf("expected missing phone_number, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown: bogus") {
		t.Fatalf("expected unknown bogus, got %v", err)
	}
}

func TestDecodeSettingsWeakKeys(t *testing.T) {
	var out struct {
		PhoneNumber string `mapstructure:"phone_number"`
		Amount      int    `mapstructure:"amount"`
	}
	err := DecodeSettings(map[string]any{
		"phoneNumber": "08111222333",
		"amount":      "50000",
	}, &out)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if out.PhoneNumber != "08111222333" || out.Amount != 50000 {
		t.Fatalf("unexpected decode result %+v", out)
	}
}
