package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GenerateOTP returns a zero padded numeric code of the given length.
func GenerateOTP(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// GenerateTempPassword is used for members created by a trainer, who log in
// after resetting it.
func GenerateTempPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
