// Package totp implements RFC 6238 time-based one-time passwords, the
// second factor a vault's owner presents to the key server on open.
// Built directly against the RFC over crypto/hmac and crypto/sha1, the
// primitives HOTP/TOTP itself prescribes.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	defaultStep   = 30 * time.Second
	defaultDigits = 6
)

// Generate returns the TOTP code for secret (raw bytes, not
// base32-encoded) at instant t, per RFC 6238 with the conventional
// 30-second step and 6 digits.
func Generate(secret []byte, t time.Time) string {
	counter := uint64(t.Unix() / int64(defaultStep.Seconds()))
	return hotp(secret, counter, defaultDigits)
}

// Validate checks code against secret, allowing a one-step clock skew
// in either direction.
func Validate(secret []byte, code string, t time.Time) bool {
	counter := t.Unix() / int64(defaultStep.Seconds())
	for _, skew := range []int64{0, -1, 1} {
		if hotp(secret, uint64(counter+skew), defaultDigits) == code {
			return true
		}
	}
	return false
}

// DecodeSecret decodes a base32 TOTP secret as commonly exchanged with
// users (RFC 3548, no padding required).
func DecodeSecret(s string) ([]byte, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	secret, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return secret, nil
}

func hotp(secret []byte, counter uint64, digits int) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(math.Pow10(digits))
	return fmt.Sprintf("%0*d", digits, code%mod)
}
