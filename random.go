package auth

import (
	"crypto/rand"

	"github.com/goliatone/go-errors"
)

const (
	verificationCodeLength = 6
	invitationCodeLength   = 32

	digitAlphabet        = "0123456789"
	alphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateVerificationCode returns a 6-digit code, uniform over all digits.
func GenerateVerificationCode() (string, error) {
	return randomString(verificationCodeLength, digitAlphabet)
}

// GenerateInvitationCode returns a 32-character alphanumeric code, uniform
// over the 62-symbol alphabet.
func GenerateInvitationCode() (string, error) {
	return randomString(invitationCodeLength, alphanumericAlphabet)
}

// randomString draws each symbol independently with rejection sampling so the
// modulo does not bias short alphabets.
func randomString(length int, alphabet string) (string, error) {
	max := byte(256 - (256 % len(alphabet)))
	out := make([]byte, 0, length)
	buf := make([]byte, length)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
