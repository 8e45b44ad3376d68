package romannumeral

import (
	"fmt"
	"strconv"

	"github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/models"
)

// Kind is the outcome of classifying a request.
type Kind int

const (
	KindSingle Kind = iota
	KindRange
	KindMissing
	KindIndeterminate
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	case KindMissing:
		return "missing"
	case KindIndeterminate:
		return "indeterminate"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Classification tells the service which conversion to run and under which
// cache key. Key, Query, Min and Max are only meaningful for the kinds that
// use them. Reason describes the request shape of an indeterminate request.
type Classification struct {
	Kind   Kind
	Key    string
	Reason string
	Query  int
	Min    int
	Max    int
}

// Err returns the error for the unresolvable kinds and nil otherwise.
func (c Classification) Err() error {
	switch c.Kind {
	case KindMissing:
		return errors.NewNoSelectorProvidedError()
	case KindIndeterminate:
		return errors.NewConversionIndeterminateError(c.Reason)
	default:
		return nil
	}
}

// SingleKey is the cache key of a single conversion.
func SingleKey(query int) string {
	return "query:" + strconv.Itoa(query)
}

// RangeKey is the cache key of a range conversion.
func RangeKey(lo, hi int) string {
	return "range:" + strconv.Itoa(lo) + ":" + strconv.Itoa(hi)
}

// Classify maps every combination of query, min and max to exactly one Kind.
// It does not trust validation to have run first.
func Classify(req models.ConversionRequest) Classification {
	hasQuery, hasMin, hasMax := req.Query != nil, req.Min != nil, req.Max != nil

	switch {
	case hasQuery && !hasMin && !hasMax:
		return Classification{Kind: KindSingle, Key: SingleKey(*req.Query), Query: *req.Query}
	case !hasQuery && hasMin && hasMax:
		return Classification{Kind: KindRange, Key: RangeKey(*req.Min, *req.Max), Min: *req.Min, Max: *req.Max}
	case !hasQuery && !hasMin && !hasMax:
		return Classification{Kind: KindMissing}
	default:
		return Classification{Kind: KindIndeterminate, Reason: describe(hasQuery, hasMin, hasMax)}
	}
}

func describe(hasQuery, hasMin, hasMax bool) string {
	return fmt.Sprintf("query=%t min=%t max=%t", hasQuery, hasMin, hasMax)
}
