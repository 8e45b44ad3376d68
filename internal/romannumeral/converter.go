package romannumeral

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Exmortem/roman-numerals/internal/models"
)

const (
	MinValue = 1
	MaxValue = 3999

	DefaultChunks = 4
)

var (
	ErrOutOfRange   = errors.New("value outside the convertible range")
	ErrInvalidRange = errors.New("range minimum is greater than maximum")
)

type numeral struct {
	value  int
	symbol string
}

var numerals = []numeral{
	{1000, "M"},
	{900, "CM"},
	{500, "D"},
	{400, "CD"},
	{100, "C"},
	{90, "XC"},
	{50, "L"},
	{40, "XL"},
	{10, "X"},
	{9, "IX"},
	{5, "V"},
	{4, "IV"},
	{1, "I"},
}

// ToRoman converts n to its Roman numeral. Callers must keep n within
// [MinValue, MaxValue].
func ToRoman(n int) string {
	var sb strings.Builder
	for _, nm := range numerals {
		for n >= nm.value {
			sb.WriteString(nm.symbol)
			n -= nm.value
		}
	}
	return sb.String()
}

// Convert returns the conversion of a single value.
func Convert(n int) models.Conversion {
	return models.Conversion{Input: strconv.Itoa(n), Output: ToRoman(n)}
}

type chunk struct {
	start int
	end   int
}

// splitRange divides [lo, hi] into numChunks contiguous chunks of
// ceil(size/numChunks) values. Chunks past hi are dropped.
func splitRange(lo, hi, numChunks int) []chunk {
	size := hi - lo + 1
	chunkSize := (size + numChunks - 1) / numChunks

	chunks := make([]chunk, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := lo + i*chunkSize
		end := start + chunkSize - 1
		if end > hi {
			end = hi
		}
		if start > end {
			continue
		}
		chunks = append(chunks, chunk{start: start, end: end})
	}
	return chunks
}

// ConvertRange converts every value in [lo, hi] using numChunks concurrent
// workers. Results are ordered by input. If any chunk fails the whole range
// fails and no partial result is returned.
func ConvertRange(ctx context.Context, lo, hi, numChunks int) ([]models.Conversion, error) {
	if lo > hi {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidRange, lo, hi)
	}
	if numChunks <= 0 {
		numChunks = DefaultChunks
	}

	chunks := splitRange(lo, hi, numChunks)
	results := make([][]models.Conversion, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := convertChunk(gctx, c)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	conversions := make([]models.Conversion, 0, hi-lo+1)
	for _, r := range results {
		conversions = append(conversions, r...)
	}
	return conversions, nil
}

func convertChunk(ctx context.Context, c chunk) ([]models.Conversion, error) {
	if c.start < MinValue || c.end > MaxValue {
		return nil, fmt.Errorf("%w: chunk %d-%d", ErrOutOfRange, c.start, c.end)
	}

	out := make([]models.Conversion, 0, c.end-c.start+1)
	for n := c.start; n <= c.end; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Convert(n))
	}
	return out, nil
}
