package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const base36Upper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomBase36 returns n uniformly random characters from [0-9A-Z].
func RandomBase36(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	max := big.NewInt(int64(len(base36Upper)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random index: %w", err)
		}
		out[i] = base36Upper[idx.Int64()]
	}
	return string(out), nil
}
