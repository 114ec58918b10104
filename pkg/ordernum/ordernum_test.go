package ordernum

import (
	"regexp"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 1, 0, 0, 0, time.FixedZone("CST", 8*3600))
	number, err := Generate("PFS", now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// The date portion is always UTC, so early-morning CST rolls back a day.
	pattern := regexp.MustCompile(`^PFS20260830[A-Z0-9]{6}$`)
	if !pattern.MatchString(number) {
		t.Fatalf("unexpected order number %q", number)
	}
}

func TestGenerateSuffixVaries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		number, err := Generate("PFS", now)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		seen[number] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected random suffixes, got %d distinct values", len(seen))
	}
}
