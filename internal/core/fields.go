package core

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNumericFields are the automobile dataset columns cast to numbers.
var DefaultNumericFields = []string{
	"symboling", "normalizedLosses", "wheelBase", "length", "width",
	"height", "curbWeight", "engineSize", "bore", "stroke",
	"compressionRatio", "horsepower", "peakRpm", "cityMpg",
	"highwayMpg", "price",
}

// FieldSet is the set of column names whose values are cast to numbers.
// Membership is exact and case-sensitive.
type FieldSet map[string]struct{}

// NewFieldSet builds a set from names, trimming whitespace and dropping
// empty entries.
func NewFieldSet(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			fs[n] = struct{}{}
		}
	}
	return fs
}

// DefaultFieldSet returns a fresh set of DefaultNumericFields.
func DefaultFieldSet() FieldSet {
	return NewFieldSet(DefaultNumericFields...)
}

// Has reports whether column is numeric.
func (fs FieldSet) Has(column string) bool {
	_, ok := fs[column]
	return ok
}

// Names returns the members in sorted order.
func (fs FieldSet) Names() []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// fieldSetFile is the YAML layout of a numeric field set file:
//
//	numeric_fields:
//	  - price
//	  - horsepower
type fieldSetFile struct {
	NumericFields []string `yaml:"numeric_fields"`
}

// LoadFieldSet reads a numeric field set from a YAML file.
func LoadFieldSet(path string) (FieldSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field set %s: %w", path, err)
	}

	var f fieldSetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse field set %s: %w", path, err)
	}
	if len(f.NumericFields) == 0 {
		return nil, fmt.Errorf("field set %s: numeric_fields is empty", path)
	}

	return NewFieldSet(f.NumericFields...), nil
}

// ResolveFieldSet picks the numeric field set from configuration: a YAML
// file wins over an inline list, which wins over the defaults.
func ResolveFieldSet(file string, inline []string) (FieldSet, error) {
	if file != "" {
		return LoadFieldSet(file)
	}
	if len(inline) > 0 {
		return NewFieldSet(inline...), nil
	}
	return DefaultFieldSet(), nil
}
