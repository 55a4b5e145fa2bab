package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// generateOrderNumber builds a time-derived number with a random suffix.
// Uniqueness is probabilistic only; the orders table enforces it with a
// unique constraint and callers retry on conflict.
func generateOrderNumber() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("ORD-%s-%04d", time.Now().UTC().Format("20060102150405"), suffix)
}
