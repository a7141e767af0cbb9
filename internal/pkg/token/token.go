package token

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

// NewOTP returns a uniformly random 6-digit numeric code, zero padded.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// NewTokenID returns a random identifier for a refresh token (its jti claim).
func NewTokenID() string {
	return uuid.NewString()
}
