// Package email derives presentation details from email addresses.
package email

import (
	"strings"
	"unicode"
)

// GreetingName guesses a first name from the local part of an address, so
// "jane.doe+books@example.com" greets "Jane". Returns "" when nothing usable
// precedes the @.
func GreetingName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 || !unicode.IsLetter([]rune(parts[0])[0]) {
		return ""
	}
	return capitalize(parts[0])
}

// Domain returns the lower-cased part after the last @, or "" when absent.
func Domain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
