package romannumeral

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Exmortem/roman-numerals/internal/common/errors"
	"github.com/Exmortem/roman-numerals/internal/common/validation"
	"github.com/Exmortem/roman-numerals/internal/models"
)

const (
	FieldQuery = "query"
	FieldMin   = "min"
	FieldMax   = "max"
)

var fieldOrder = []string{FieldQuery, FieldMin, FieldMax}

// Rule order within a field, matching the order the rules are declared on
// the request.
var codeOrder = []string{
	validation.CodeInvalidType,
	validation.CodeRequiredWith,
	validation.CodeMinimumViolation,
	validation.CodeMaximumViolation,
	validation.CodeMutuallyExclusive,
	validation.CodeLessThan,
}

var requestSchema = validation.MustCompile(map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		FieldQuery: boundedInteger(),
		FieldMin:   boundedInteger(),
		FieldMax:   boundedInteger(),
	},
})

func boundedInteger() map[string]interface{} {
	return map[string]interface{}{
		"type":    "integer",
		"minimum": MinValue,
		"maximum": MaxValue,
	}
}

func fieldMessage(field, code string) string {
	switch code {
	case validation.CodeInvalidType:
		return fmt.Sprintf("The %s parameter must be a number and may not contain decimal places.", field)
	case validation.CodeMinimumViolation:
		return fmt.Sprintf("The %s parameter must be greater than or equal to %d.", field, MinValue)
	case validation.CodeMaximumViolation:
		return fmt.Sprintf("The %s parameter must be less than or equal to %d.", field, MaxValue)
	case validation.CodeMutuallyExclusive:
		return "If query is provided, min and max parameters should not be present."
	case validation.CodeLessThan:
		return "The min parameter must be less than the max parameter."
	case validation.CodeRequiredWith:
		if field == FieldMin {
			return "The max parameter must also be provided when the min parameter is set"
		}
		return "The min parameter must also be provided when the max parameter is set"
	default:
		return fmt.Sprintf("The %s parameter is invalid.", field)
	}
}

// ParseRequest reads query, min and max from values and validates them. The
// request is only meaningful when the result is valid. Unknown parameters are
// ignored.
func ParseRequest(values url.Values) (models.ConversionRequest, *validation.ValidationResult) {
	document := make(map[string]interface{}, len(fieldOrder))
	parsed := make(map[string]int, len(fieldOrder))

	for _, field := range fieldOrder {
		raw, ok := values[field]
		if !ok {
			continue
		}
		n, isNumber := parseNumber(raw)
		if !isNumber {
			// Anything that is not a JSON number fails the integer type rule.
			document[field] = strings.Join(raw, ",")
			continue
		}
		document[field] = n
		if n == math.Trunc(n) && n >= MinValue && n <= MaxValue {
			parsed[field] = int(n)
		}
	}

	result, err := requestSchema.Validate(document)
	if err != nil {
		result = &validation.ValidationResult{Valid: true}
		result.Add("", validation.CodeSchemaViolation, err.Error())
	} else {
		for i := range result.Errors {
			result.Errors[i].Message = fieldMessage(result.Errors[i].Field, result.Errors[i].Code)
		}
	}

	_, hasQuery := document[FieldQuery]
	_, hasMin := document[FieldMin]
	_, hasMax := document[FieldMax]

	if hasQuery && (hasMin || hasMax) {
		result.Add(FieldQuery, validation.CodeMutuallyExclusive, fieldMessage(FieldQuery, validation.CodeMutuallyExclusive))
	}
	if hasMin && !hasMax {
		result.Add(FieldMin, validation.CodeRequiredWith, fieldMessage(FieldMin, validation.CodeRequiredWith))
	}
	if hasMax && !hasMin {
		result.Add(FieldMax, validation.CodeRequiredWith, fieldMessage(FieldMax, validation.CodeRequiredWith))
	}
	lo, loOK := parsed[FieldMin]
	hi, hiOK := parsed[FieldMax]
	if loOK && hiOK && lo >= hi {
		result.Add(FieldMin, validation.CodeLessThan, fieldMessage(FieldMin, validation.CodeLessThan))
	}

	result.SortBy(fieldOrder, codeOrder)

	var req models.ConversionRequest
	if !result.Valid {
		return req, result
	}
	if v, ok := parsed[FieldQuery]; ok {
		req.Query = models.IntPtr(v)
	}
	if v, ok := parsed[FieldMin]; ok {
		req.Min = models.IntPtr(v)
	}
	if v, ok := parsed[FieldMax]; ok {
		req.Max = models.IntPtr(v)
	}
	return req, result
}

// parseNumber accepts exactly one finite decimal number.
func parseNumber(raw []string) (float64, bool) {
	if len(raw) != 1 {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw[0]), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// ValidationError converts a failed result into the API error type.
func ValidationError(result *validation.ValidationResult) error {
	if result == nil || result.Valid {
		return nil
	}
	fieldErrors := make([]errors.FieldError, len(result.Errors))
	for i, e := range result.Errors {
		fieldErrors[i] = errors.FieldError{Field: e.Field, Message: e.Message, Code: e.Code}
	}
	return errors.NewValidationFailedError(fieldErrors)
}
