package checkout

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	orderSuffixLength = 6
	base36Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var base36Size = big.NewInt(int64(len(base36Alphabet)))

// OrderNumbers generates human-facing order numbers of the form
// ORD-<base36 unix millis>-<6 random base36 chars>, upper-cased.
type OrderNumbers struct {
	random io.Reader
	now    func() time.Time
}

func NewOrderNumbers() *OrderNumbers {
	return &OrderNumbers{random: rand.Reader, now: time.Now}
}

func (g *OrderNumbers) Next() (string, error) {
	millis := strconv.FormatInt(g.now().UnixMilli(), 36)

	var suffix strings.Builder
	suffix.Grow(orderSuffixLength)
	for i := 0; i < orderSuffixLength; i++ {
		n, err := rand.Int(g.random, base36Size)
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		suffix.WriteByte(base36Alphabet[n.Int64()])
	}
	return strings.ToUpper(orderNumberPrefix + "-" + millis + "-" + suffix.String()), nil
}
