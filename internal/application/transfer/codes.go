package transfer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// verificationCodeBytes is the entropy of a one-time code; hex-encoded
// it yields a 12-character code.
const verificationCodeBytes = 6

// GenerateVerificationCode produces a random one-time code
func GenerateVerificationCode() (string, error) {
	buf := make([]byte, verificationCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashVerificationCode hashes a code for at-rest storage on the pending
// movement. The plaintext only travels through the Notifier.
func HashVerificationCode(code string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash verification code: %w", err)
	}
	return hash, nil
}

// CheckVerificationCode reports whether code matches the stored hash
func CheckVerificationCode(hash []byte, code string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil
}
