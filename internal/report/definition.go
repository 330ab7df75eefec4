// Package report resolves named report generators from a static registry and renders their content.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
)

// ParamType is the declared type of a report parameter
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
	ParamDate   ParamType = "date"
	ParamEnum   ParamType = "enum"
)

// Param describes one accepted report parameter
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Default     string    `json:"default,omitempty"`
	Values      []string  `json:"values,omitempty"`
	Description string    `json:"description,omitempty"`
}

func (p Param) check(raw string) error {
	switch p.Type {
	case ParamNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return shared.ErrInvalidArgument{Field: p.Name, Reason: "must be a number"}
		}
	case ParamDate:
		if _, err := time.Parse(ledger.DateLayout, raw); err != nil {
			return shared.ErrInvalidArgument{Field: p.Name, Reason: "must be a date in YYYY-MM-DD form"}
		}
	case ParamEnum:
		for _, v := range p.Values {
			if raw == v {
				return nil
			}
		}
		return shared.ErrInvalidArgument{Field: p.Name, Reason: "must be one of " + strings.Join(p.Values, ", ")}
	}
	return nil
}

// Content is a generated report body
type Content struct {
	ReportName  string
	ContentType string
	Body        []byte
	GeneratedAt time.Time
}

// GeneratorFunc produces report content from validated parameters and the engine's data sources
type GeneratorFunc func(ctx context.Context, src Sources, params Values) (*Content, error)

// Definition is one immutable registry entry
type Definition struct {
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`

	generate GeneratorFunc
}

// NewDefinition builds a registry entry around a generator
func NewDefinition(name, version, description string, params []Param, generate GeneratorFunc) *Definition {
	return &Definition{
		Name:        name,
		Version:     version,
		Description: description,
		Params:      params,
		generate:    generate,
	}
}

// Bind validates raw parameters against the schema and applies defaults.
// Unknown parameter names are rejected.
func (d *Definition) Bind(raw map[string]string) (Values, error) {
	known := make(map[string]Param, len(d.Params))
	for _, p := range d.Params {
		known[p.Name] = p
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := known[name]; !ok {
			return Values{}, shared.ErrInvalidArgument{Field: name, Reason: fmt.Sprintf("unknown parameter for report %s", d.Name)}
		}
	}

	bound := make(map[string]string, len(d.Params))
	for _, p := range d.Params {
		v := strings.TrimSpace(raw[p.Name])
		if v == "" {
			v = p.Default
		}
		if v == "" {
			if p.Required {
				return Values{}, shared.ErrInvalidArgument{Field: p.Name, Reason: "is required"}
			}
			continue
		}
		if err := p.check(v); err != nil {
			return Values{}, err
		}
		bound[p.Name] = v
	}
	return Values{values: bound}, nil
}

// Values holds parameters that already passed schema validation
type Values struct {
	values map[string]string
}

// String returns the raw value, or "" when the parameter was not supplied
func (v Values) String(name string) string {
	return v.values[name]
}

// Has reports whether the parameter was supplied or defaulted
func (v Values) Has(name string) bool {
	_, ok := v.values[name]
	return ok
}

// Number returns a numeric parameter; absent parameters read as zero
func (v Values) Number(name string) float64 {
	f, _ := strconv.ParseFloat(v.values[name], 64)
	return f
}

// Date returns a date parameter; absent parameters read as the zero time
func (v Values) Date(name string) time.Time {
	t, _ := time.Parse(ledger.DateLayout, v.values[name])
	return t
}
