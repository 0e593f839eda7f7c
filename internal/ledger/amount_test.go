package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"55", 55000000, false},
		{"55.50", 55500000, false},
		{"0.000001", 1, false},
		{"100.123456", 100123456, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"0.0000001", 0, true}, // more than 6 decimal places
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "55.5", FormatAmount(55500000))
	assert.Equal(t, "0.000001", FormatAmount(1))
	assert.Equal(t, "-12.25", FormatAmount(-12250000))
	assert.Equal(t, "0", FormatAmount(0))
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, v := range []int64{1, 999999, 1000000, 55500000, 123456789} {
		got, err := ParseAmount(FormatAmount(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}
