package ordernum

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	suffixLen     = 6
	suffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generate returns a customer-facing order number: prefix, UTC date, and a
// random uppercase alphanumeric suffix, e.g. PFS20250101A3X9QK. Uniqueness is
// enforced by the DB constraint; callers retry on collision.
func Generate(prefix string, now time.Time) (string, error) {
	suffix := make([]byte, suffixLen)
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number suffix: %w", err)
	}
	for i, b := range buf {
		suffix[i] = suffixCharset[int(b)%len(suffixCharset)]
	}
	return fmt.Sprintf("%s%s%s", prefix, now.UTC().Format("20060102"), string(suffix)), nil
}
