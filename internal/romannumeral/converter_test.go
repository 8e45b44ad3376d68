package romannumeral

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Exmortem/roman-numerals/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var symbolValues = map[rune]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// parseRoman reads a numeral with the usual subtractive rule.
func parseRoman(t *testing.T, s string) int {
	t.Helper()
	total := 0
	runes := []rune(s)
	for i, r := range runes {
		v, ok := symbolValues[r]
		require.Truef(t, ok, "unexpected symbol %q in %q", r, s)
		if i+1 < len(runes) && v < symbolValues[runes[i+1]] {
			total -= v
		} else {
			total += v
		}
	}
	return total
}

func longestRun(s string) int {
	longest, current := 0, 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
		prev = r
	}
	return longest
}

// ==========================
// ToRoman
// ==========================

func TestToRoman_KnownValues(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{1, "I"},
		{3, "III"},
		{4, "IV"},
		{9, "IX"},
		{14, "XIV"},
		{40, "XL"},
		{90, "XC"},
		{400, "CD"},
		{944, "CMXLIV"},
		{1990, "MCMXC"},
		{2024, "MMXXIV"},
		{3888, "MMMDCCCLXXXVIII"},
		{3999, "MMMCMXCIX"},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ToRoman(tt.in))
		})
	}
}

func TestToRoman_RoundTripsWholeDomain(t *testing.T) {
	for n := MinValue; n <= MaxValue; n++ {
		out := ToRoman(n)
		require.NotEmpty(t, out, "n=%d", n)
		require.Empty(t, strings.Trim(out, "IVXLCDM"), "n=%d produced %q", n, out)
		require.LessOrEqual(t, longestRun(out), 3, "n=%d produced %q", n, out)
		require.Equal(t, n, parseRoman(t, out), "n=%d produced %q", n, out)
	}
}

func TestConvert(t *testing.T) {
	assert.Equal(t, models.Conversion{Input: "1990", Output: "MCMXC"}, Convert(1990))
}

// ==========================
// Range chunking
// ==========================

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name      string
		lo, hi    int
		numChunks int
		want      []chunk
	}{
		{
			name: "even split", lo: 1, hi: 8, numChunks: 4,
			want: []chunk{{1, 2}, {3, 4}, {5, 6}, {7, 8}},
		},
		{
			name: "uneven split clamps the last chunk", lo: 1, hi: 5, numChunks: 4,
			want: []chunk{{1, 2}, {3, 4}, {5, 5}},
		},
		{
			name: "more chunks than values", lo: 10, hi: 12, numChunks: 8,
			want: []chunk{{10, 10}, {11, 11}, {12, 12}},
		},
		{
			name: "single value", lo: 7, hi: 7, numChunks: 4,
			want: []chunk{{7, 7}},
		},
		{
			name: "one chunk", lo: 1, hi: 100, numChunks: 1,
			want: []chunk{{1, 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitRange(tt.lo, tt.hi, tt.numChunks))
		})
	}
}

func TestConvertRange_MatchesConvert(t *testing.T) {
	ranges := []struct{ lo, hi int }{
		{1, 3},
		{1, 5},
		{7, 7},
		{1, 3999},
		{1987, 2001},
	}

	for _, r := range ranges {
		for _, numChunks := range []int{0, 1, 2, 3, 4, 7, 16, 5000} {
			got, err := ConvertRange(context.Background(), r.lo, r.hi, numChunks)
			require.NoError(t, err)
			require.Len(t, got, r.hi-r.lo+1, "range %d-%d chunks %d", r.lo, r.hi, numChunks)

			for i, c := range got {
				require.Equal(t, Convert(r.lo+i), c, "range %d-%d chunks %d", r.lo, r.hi, numChunks)
			}
		}
	}
}

func TestConvertRange_Examples(t *testing.T) {
	got, err := ConvertRange(context.Background(), 1, 5, DefaultChunks)
	require.NoError(t, err)

	assert.Equal(t, []models.Conversion{
		{Input: "1", Output: "I"},
		{Input: "2", Output: "II"},
		{Input: "3", Output: "III"},
		{Input: "4", Output: "IV"},
		{Input: "5", Output: "V"},
	}, got)
}

func TestConvertRange_Errors(t *testing.T) {
	t.Run("min greater than max", func(t *testing.T) {
		_, err := ConvertRange(context.Background(), 5, 4, 4)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidRange))
	})

	t.Run("out of range chunk fails the whole range", func(t *testing.T) {
		got, err := ConvertRange(context.Background(), 3990, 4010, 4)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfRange))
		assert.Nil(t, got)
	})

	t.Run("zero is rejected", func(t *testing.T) {
		_, err := ConvertRange(context.Background(), 0, 3, 2)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, err := ConvertRange(ctx, 1, 100, 4)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, got)
	})
}
