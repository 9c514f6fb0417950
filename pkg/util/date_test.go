package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-15", "2024-03-15T18:30:00Z", "1710527400"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), in)
	}

	_, ok := ParseDate("")
	assert.False(t, ok)
	_, ok = ParseDate("15/03/2024")
	assert.False(t, ok)
	_, ok = ParseDate("-5")
	assert.False(t, ok)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2024-03-15", FormatDate(time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)))
}

func TestDateRange(t *testing.T) {
	f, to, err := DateRange("2024-01-01", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", FormatDate(f))
	assert.Equal(t, "2024-06-30", FormatDate(to))

	f, to, err = DateRange("", "")
	require.NoError(t, err)
	assert.True(t, f.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = DateRange("2024-06-30", "2024-01-01")
	assert.ErrorContains(t, err, "after")
	_, _, err = DateRange("nope", "")
	assert.ErrorContains(t, err, "invalid from")
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "KO", NormalizeSymbol(" ko "))
	assert.Equal(t, "BRK.B", NormalizeSymbol("brk.b"))
	assert.Equal(t, "", NormalizeSymbol("  "))
}
