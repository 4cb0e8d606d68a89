package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// generateOTP returns a uniformly random integer in [min, max] as a decimal string.
func generateOTP(min, max int) (string, error) {
	if min < 0 || max < min {
		return "", fmt.Errorf("invalid otp range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+int64(min), 10), nil
}
