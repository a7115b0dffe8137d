package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOTP creates a numeric completion code of the given length.
// crypto/rand because the code gates the completed transition.
func GenerateOTP(length int) string {
	if length <= 0 {
		length = 6
	}

	otp := ""
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// rand.Reader failing means the platform is broken; fall back
			// to a fixed digit rather than panic in a request path.
			otp += "0"
			continue
		}
		otp += n.String()
	}

	return otp
}

// GenerateOrderID creates a unique payment order reference.
// Format: SRV-YYYYMMDD-HHMMSS-RANDOM
func GenerateOrderID() string {
	now := time.Now()
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf("SRV-%s-%s-%04d", now.Format("20060102"), now.Format("150405"), n.Int64())
}
