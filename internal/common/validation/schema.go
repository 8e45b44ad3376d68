package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// Error codes reported in ValidationError.Code.
const (
	CodeInvalidType       = "INVALID_TYPE"
	CodeMinimumViolation  = "MINIMUM_VIOLATION"
	CodeMaximumViolation  = "MAXIMUM_VIOLATION"
	CodeRequiredMissing   = "REQUIRED_FIELD_MISSING"
	CodeMutuallyExclusive = "MUTUALLY_EXCLUSIVE"
	CodeRequiredWith      = "REQUIRED_WITH"
	CodeLessThan          = "LESS_THAN_VIOLATION"
	CodeSchemaViolation   = "SCHEMA_VIOLATION"
)

// codeByResultType maps gojsonschema result types to our codes.
var codeByResultType = map[string]string{
	"invalid_type": CodeInvalidType,
	"number_gte":   CodeMinimumViolation,
	"number_gt":    CodeMinimumViolation,
	"number_lte":   CodeMaximumViolation,
	"number_lt":    CodeMaximumViolation,
	"required":     CodeRequiredMissing,
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile compiles a schema given as a Go value (usually a map).
func Compile(definition interface{}) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is like Compile but panics on an invalid schema.
func MustCompile(definition interface{}) *Schema {
	s, err := Compile(definition)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks document against the schema. The returned error is set only
// when the document could not be loaded at all.
func (s *Schema) Validate(document interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	vr := &ValidationResult{Valid: true}
	for _, desc := range result.Errors() {
		code, ok := codeByResultType[desc.Type()]
		if !ok {
			code = CodeSchemaViolation
		}
		field := desc.Field()
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				field = prop
			}
		}
		vr.Add(field, code, desc.Description())
	}
	return vr, nil
}

// Add records a failure and marks the result invalid.
func (vr *ValidationResult) Add(field, code, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
	})
}

// SortBy orders errors by the position of their field in fields and then by
// the position of their code in codes. Unknown fields and codes sort last.
func (vr *ValidationResult) SortBy(fields, codes []string) {
	rank := func(list []string, v string) int {
		for i, s := range list {
			if s == v {
				return i
			}
		}
		return len(list)
	}
	sort.SliceStable(vr.Errors, func(i, j int) bool {
		fi, fj := rank(fields, vr.Errors[i].Field), rank(fields, vr.Errors[j].Field)
		if fi != fj {
			return fi < fj
		}
		return rank(codes, vr.Errors[i].Code) < rank(codes, vr.Errors[j].Code)
	})
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}
