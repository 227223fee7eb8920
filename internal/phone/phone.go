// Package phone canonicalizes loosely formatted phone number strings into the
// stable keys the inbox store and conversation itemIds are built from.
package phone

import "strings"

const defaultCountryCode = "1"

// Normalize strips every non-digit character from raw. A bare 10-digit national
// number gets the default country code prepended; anything else passes through
// unchanged, including the empty string. Callers must treat an empty key as an
// unidentifiable conversation.
//
// An 11-digit input is never re-prefixed, so a number that already carries a
// leading 1 round-trips.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return defaultCountryCode + digits
	}
	return digits
}

// ItemID builds the opaque conversation reference the messaging frontend
// expects for direct navigation: "t.%2B<digits>", the URL-encoded form of
// "t.+<digits>".
func ItemID(key string) string {
	return "t.%2B" + key
}
