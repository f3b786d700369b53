package domain

import (
	"math"
	"strconv"
	"strings"
)

// FormatRupiah renders an amount as whole rupiah with dot thousands
// separators, e.g. 25000 -> "Rp 25.000".
func FormatRupiah(amount float64) string {
	n := int64(math.Round(amount))
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
