package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP generates a 6-digit OTP
func GenerateOTP() string {
	// Generate a random number between 100000 and 999999
	max := big.NewInt(900000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(fmt.Sprintf("otp: crypto/rand unavailable: %v", err))
	}

	return fmt.Sprintf("%06d", n.Int64()+100000)
}
