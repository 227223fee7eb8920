package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Formatted", "(555) 123-4567", "15551234567"},
		{"International", "+1 555 123 4567", "15551234567"},
		{"ShortUntouched", "12345", "12345"},
		{"Empty", "", ""},
		{"LettersOnly", "call me", ""},
		{"TenDigitsBare", "5551234567", "15551234567"},
		{"ElevenDigitsPassThrough", "15551234567", "15551234567"},
		{"ElevenDigitsNotPrefixed", "25551234567", "25551234567"},
		{"TwelveDigits", "445551234567", "445551234567"},
		{"MixedNoise", "tel: 555.123.4567 x", "15551234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// The 10/11 boundary: a 10-digit number is prefixed exactly once, and feeding
// the output back through must not prefix again.
func TestNormalizePrefixBoundary(t *testing.T) {
	once := Normalize("5551234567")
	if len(once) != 11 {
		t.Fatalf("expected 11 digits after prefixing, got %q", once)
	}
	if twice := Normalize(once); twice != once {
		t.Errorf("re-normalizing %q changed it to %q", once, twice)
	}
}

func TestItemID(t *testing.T) {
	if got := ItemID("15551234567"); got != "t.%2B15551234567" {
		t.Errorf("ItemID = %q", got)
	}
}
