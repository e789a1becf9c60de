package phone

import "testing"

func TestValidateCarrierTable(t *testing.T) {
	cases := []struct {
		raw      string
		provider string
	}{
		{"08111222333", "telkomsel"},
		{"081234567890", "telkomsel"},
		{"0852 1111 2222", "telkomsel"},
		{"+62 817 555 6666", "xl"},
		{"0878-1234-5678", "xl"},
		{"6281511112222", "indosat"},
		{"085712345678", "indosat"},
		{"089612345678", "tri"},
		{"088112345678", "smartfren"},
	}
	for _, tc := range cases {
		v := Validate(tc.raw)
		if !v.Valid {
			t.Fatalf("%s: expected valid, got reason %q", tc.raw, v.Reason)
		}
		if v.Provider != tc.provider {
			t.Fatalf("%s: expected provider %s, got %s", tc.raw, tc.provider, v.Provider)
		}
	}
}

func TestValidateShapeWithoutCarrier(t *testing.T) {
	// 0841 matches the generic mobile shape but belongs to no carrier.
	v := Validate("084112345678")
	if v.Valid {
		t.Fatalf("expected invalid for unassigned prefix")
	}
	if v.Reason == "" {
		t.Fatalf("expected a reason for the failure")
	}
}

func TestValidateRejectsBadShapes(t *testing.T) {
	for _, raw := range []string{"", "0811", "021555666777", "abc", "0811122233344455566"} {
		if v := Validate(raw); v.Valid {
			t.Fatalf("%q: expected invalid", raw)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{"+62 811-122-2333", "62811222333", "0811 222 333", "8111222333"} {
		once := Normalize(raw)
		if twice := Normalize(once); twice != once {
			t.Fatalf("%q: normalize not idempotent: %q vs %q", raw, once, twice)
		}
	}
}

func TestNormalizeCountryPrefix(t *testing.T) {
	if got := Normalize("+628111222333"); got != "08111222333" {
		t.Fatalf("unexpected normalization %q", got)
	}
	if got := Normalize("628111222333"); got != "08111222333" {
		t.Fatalf("unexpected normalization %q", got)
	}
	if got := Normalize("8111222333"); got != "08111222333" {
		t.Fatalf("unexpected normalization %q", got)
	}
}
