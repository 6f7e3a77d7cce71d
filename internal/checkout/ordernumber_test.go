package checkout

import (
	"bytes"
	"crypto/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]{6}$`)

func TestOrderNumbersFormat(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	g := &OrderNumbers{random: rand.Reader, now: func() time.Time { return at }}

	number, err := g.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !orderNumberPattern.MatchString(number) {
		t.Fatalf("unexpected format %q", number)
	}
	stamp := strings.Split(number, "-")[1]
	millis, err := strconv.ParseInt(strings.ToLower(stamp), 36, 64)
	if err != nil || millis != at.UnixMilli() {
		t.Fatalf("timestamp segment %q does not decode to %d", stamp, at.UnixMilli())
	}
}

func TestOrderNumbersAreRandomized(t *testing.T) {
	g := NewOrderNumbers()
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		number, err := g.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		seen[number] = struct{}{}
	}
	if len(seen) < 45 {
		t.Fatalf("expected mostly unique numbers, got %d distinct", len(seen))
	}
}

func TestOrderNumbersRandomSourceError(t *testing.T) {
	g := &OrderNumbers{random: bytes.NewReader(nil), now: time.Now}
	if _, err := g.Next(); err == nil {
		t.Fatalf("expected error from exhausted random source")
	}
}
