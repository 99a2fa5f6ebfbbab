// Package code generates claim verification codes and their expiry.
package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// Length of a verification code.
	Length = 8
	// DefaultExpiryDays is used when no positive expiry is configured.
	DefaultExpiryDays = 7

	// alphabet omits 0/O and 1/I so codes survive being retyped.
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Generate returns a random code drawn from an unambiguous alphabet.
func Generate() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not generate verification code: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// ExpiresAt returns now plus the given number of days, keeping the time of day.
func ExpiresAt(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultExpiryDays
	}
	return now.AddDate(0, 0, days)
}
