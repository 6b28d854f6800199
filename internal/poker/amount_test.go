package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,200", 1200},
		{"1,000,000", 1_000_000},
		{"$1.2M", 1_200_000},
		{"12k", 12_000},
		{"$2B", 2_000_000_000},
		{" 350 ", 350},
		{"", 0},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseAmount(c.in)
			require.NoError(t, err)
			assert.InDelta(t, c.want, got, 1e-9)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseAmount("$abc")
		assert.Error(t, err)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$0", FormatAmount(0))
	assert.Equal(t, "$950", FormatAmount(950))
	assert.Equal(t, "$12,000", FormatAmount(12000))
	assert.Equal(t, "$1,200,000", FormatAmount(1200000))
	assert.Equal(t, "-$1,500", FormatAmount(-1500))
	assert.Equal(t, "$1,000", FormatAmount(999.9))
}
