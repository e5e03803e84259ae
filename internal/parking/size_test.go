package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		raw  string
		want Size
	}{
		{"small", Small},
		{"S", Small},
		{"0", Small},
		{" medium ", Medium},
		{"m", Medium},
		{"1", Medium},
		{"LARGE", Large},
		{"l", Large},
		{"2", Large},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, raw := range []string{"", "xl", "3", "-1", "tiny"} {
		_, err := ParseSize(raw)
		assert.ErrorIs(t, err, ErrInvalidSize, raw)
	}
}

func TestSizeString(t *testing.T) {
	assert.Equal(t, "small", Small.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "large", Large.String())
	assert.Equal(t, "unknown(7)", Size(7).String())
	assert.False(t, Size(7).Valid())
	assert.False(t, Size(-1).Valid())
}
