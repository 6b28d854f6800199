package poker

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var amountSuffixes = []struct {
	suffix string
	mult   decimal.Decimal
}{
	{"B", decimal.NewFromInt(1_000_000_000)},
	{"M", decimal.NewFromInt(1_000_000)},
	{"K", decimal.NewFromInt(1_000)},
}

// ParseAmount 解析叠加层/解说中出现的筹码金额文本，
// 如 "$1.2M"、"1,000,000"、"12k"。空串返回 0。
func ParseAmount(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	mult := decimal.NewFromInt(1)
	upper := strings.ToUpper(s)
	for _, sf := range amountSuffixes {
		if strings.HasSuffix(upper, sf.suffix) {
			mult = sf.mult
			s = s[:len(s)-len(sf.suffix)]
			break
		}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse chip amount %q: %w", text, err)
	}
	f, _ := d.Mul(mult).Float64()
	return f, nil
}

// FormatAmount renders a chip count the way broadcast overlays do,
// dollar sign and thousands separators, no decimals.
func FormatAmount(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(0)
	neg := d.IsNegative()
	digits := d.Abs().String()

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
