package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseClaimID checks that parsing never panics and that accepted IDs
// round-trip unchanged.
func FuzzParseClaimID(f *testing.F) {
	f.Add("")
	f.Add("CLM-0001")
	f.Add("../etc")
	f.Add("'; DROP TABLE claims;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseClaimID(input)
		if err != nil {
			return
		}
		if !utf8.ValidString(id.String()) {
			t.Errorf("accepted invalid UTF-8: %q", input)
		}
		again, err := ParseClaimID(id.String())
		if err != nil || again != id {
			t.Errorf("round-trip failed for %q", input)
		}
	})
}
