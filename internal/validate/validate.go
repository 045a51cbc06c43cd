// Package validate checks numeric struct fields against `stag:"..."`
// struct tags, the way the rest of the ecosystem's struct-tag-driven config
// loaders (schema generation, serialization) read their own tags: reflect
// over the fields once, parse the tag clauses, and apply them generically
// instead of hand-writing one if-statement per field.
package validate

import (
	"fmt"
	"reflect"
	"strconv"

	stgpsr "github.com/yuin/stagparser"
)

// Range checks every float64 (or []float64, checked element-wise) field of v
// tagged `stag:"min=...,max=..."` against its declared bounds. v must
// be a pointer to a struct.
//
// Only min/max clauses are recognized; an unrecognized clause name is
// ignored rather than rejected, since struct-tag parsers elsewhere in the
// ecosystem (e.g. a field also tagged for JSON or TileDB encoding) commonly
// share a struct with tags this package doesn't own.
func Range(v interface{}) error {
	defs, err := stgpsr.ParseStruct(v, "stag")
	if err != nil {
		return fmt.Errorf("validate: parsing struct tags: %w", err)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		name := rt.Field(i).Name
		clauses, ok := defs[name]
		if !ok {
			continue
		}

		bounds, err := parseBounds(clauses)
		if err != nil {
			return fmt.Errorf("validate: field %s: %w", name, err)
		}
		if bounds == nil {
			continue
		}

		if err := checkField(name, rv.Field(i), *bounds); err != nil {
			return err
		}
	}

	return nil
}

type minMax struct {
	min, max float64
}

func parseBounds(clauses []stgpsr.Definition) (*minMax, error) {
	var b minMax
	var hasMin, hasMax bool

	for _, d := range clauses {
		switch d.Name() {
		case "min":
			s, ok := d.Attribute("min")
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("min clause: %w", err)
			}
			b.min, hasMin = v, true
		case "max":
			s, ok := d.Attribute("max")
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("max clause: %w", err)
			}
			b.max, hasMax = v, true
		}
	}

	if !hasMin && !hasMax {
		return nil, nil
	}
	if !hasMin {
		b.min = -1
	}
	if hasMin && !hasMax {
		b.max = 1
	}
	return &b, nil
}

func checkField(name string, field reflect.Value, bounds minMax) error {
	switch field.Kind() {
	case reflect.Float64:
		return checkValue(name, field.Float(), bounds)
	case reflect.Slice:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() != reflect.Float64 {
				continue
			}
			if err := checkValue(fmt.Sprintf("%s[%d]", name, i), elem.Float(), bounds); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkValue(name string, v float64, bounds minMax) error {
	if v < bounds.min || v > bounds.max {
		return fmt.Errorf("validate: %s = %g is outside [%g, %g]", name, v, bounds.min, bounds.max)
	}
	return nil
}
