package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.5", FormatAmount(1_500_000, 6))
	assert.Equal(t, "4500", FormatAmount(4500, 0))
	assert.Equal(t, "0.000000001", FormatAmount(1, 9))
	assert.Equal(t, "18446744073709551615", FormatAmount(^uint64(0), 0))
}

func TestParseAmount(t *testing.T) {
	n, err := ParseAmount("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), n)

	n, err = ParseAmount("4500", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4500), n)

	for _, bad := range []string{"", "abc", "-1", "0.0000001"} {
		_, err := ParseAmount(bad, 6)
		assert.Error(t, err, bad)
	}

	_, err = ParseAmount("18446744073709551616", 0)
	assert.Error(t, err)
}
