package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// InvoiceNumber builds prefix + the last six digits of the Unix millisecond
// timestamp + suffix. Collisions are not checked.
func InvoiceNumber(prefix string, now time.Time, suffix int) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("%s%s%d", prefix, ms, suffix)
}

// RandomSuffix returns a number in [0, 100).
func RandomSuffix() int {
	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return int(time.Now().UnixNano() % 100)
	}
	return int(n.Int64())
}

// GenerateInvoiceNumber is InvoiceNumber with the current time and a random suffix.
func GenerateInvoiceNumber(prefix string) string {
	return InvoiceNumber(prefix, time.Now(), RandomSuffix())
}
