// Package email holds the few address helpers the console needs.
package email

import (
	"strings"
)

// LocalPart returns the text before the last '@', or the whole input when
// there is none. Surrounding whitespace is dropped.
func LocalPart(address string) string {
	address = strings.TrimSpace(address)
	if at := strings.LastIndexByte(address, '@'); at > 0 {
		return address[:at]
	}
	return address
}

// IsPlausible reports whether address has a non-empty local part and a
// dotted domain. It is a shape check, not deliverability.
func IsPlausible(address string) bool {
	address = strings.TrimSpace(address)
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return false
	}
	domain := address[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1 && !strings.ContainsAny(address, " \t\r\n")
}
