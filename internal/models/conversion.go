package models

// ConversionRequest is the parsed query of GET /romannumeral. Nil fields were
// not supplied by the caller.
type ConversionRequest struct {
	Query *int `json:"query,omitempty"`
	Min   *int `json:"min,omitempty"`
	Max   *int `json:"max,omitempty"`
}

// Response is either a single Conversion or a Conversions set.
type Response interface {
	ResponseKind() string
}

const (
	ResponseKindSingle = "single"
	ResponseKindRange  = "range"
)

// Conversion is one integer and its Roman numeral.
type Conversion struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

func (Conversion) ResponseKind() string { return ResponseKindSingle }

// Conversions holds a range of conversions ordered by ascending input.
type Conversions struct {
	Conversions []Conversion `json:"conversions" yaml:"conversions"`
}

func (Conversions) ResponseKind() string { return ResponseKindRange }

// IntPtr is a convenience for building requests.
func IntPtr(i int) *int {
	return &i
}
