package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// number matches json.Number without tying the package to one decoder.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// coercion is the outcome of normalising one cell.
type coercion struct {
	value   any
	errType string
	msg     string
}

func ok(v any) coercion { return coercion{value: v} }

func fail(v any, errType, msg string) coercion {
	return coercion{value: v, errType: errType, msg: msg}
}

func coerce(f Field, v any) coercion {
	if v == nil {
		return ok(nil)
	}
	switch f.Kind {
	case KindInt:
		return coerceInt(v)
	case KindFloat:
		return coerceFloat(v)
	case KindString:
		if s, isStr := v.(string); isStr {
			return ok(s)
		}
		return fail(v, "string_type", "Input should be a valid string")
	}
	return fail(v, "schema", fmt.Sprintf("unsupported field kind %q", f.Kind))
}

func coerceInt(v any) coercion {
	switch x := v.(type) {
	case int64:
		return ok(x)
	case int:
		return ok(int64(x))
	case int32:
		return ok(int64(x))
	case float64:
		return intFromFloat(v, x)
	case float32:
		return intFromFloat(v, float64(x))
	case number:
		if i, err := x.Int64(); err == nil {
			return ok(i)
		}
		f, err := x.Float64()
		if err != nil {
			return fail(v, "int_parsing", "Input should be a valid integer, unable to parse number")
		}
		return intFromFloat(v, f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return fail(v, "int_parsing", "Input should be a valid integer, unable to parse string as an integer")
		}
		return ok(i)
	}
	return fail(v, "int_type", "Input should be a valid integer")
}

func intFromFloat(raw any, f float64) coercion {
	switch {
	case math.IsNaN(f):
		return ok(nil)
	case math.IsInf(f, 0) || f >= 0x1p63 || f < -0x1p63:
		return fail(raw, "int_parsing", "Input should be a finite integer")
	case f != math.Trunc(f):
		return fail(raw, "int_from_float", "Input should be a valid integer, got a number with a fractional part")
	}
	return ok(int64(f))
}

func coerceFloat(v any) coercion {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case number:
		parsed, err := x.Float64()
		if err != nil {
			return fail(v, "float_parsing", "Input should be a valid number, unable to parse number")
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return fail(v, "float_parsing", "Input should be a valid number, unable to parse string as a number")
		}
		f = parsed
	default:
		return fail(v, "float_type", "Input should be a valid number")
	}
	if math.IsNaN(f) {
		return ok(nil)
	}
	if math.IsInf(f, 0) {
		return fail(v, "finite_number", "Input should be a finite number")
	}
	return ok(f)
}

// constrain checks bounds on an already coerced value.
func constrain(f Field, v any) (string, string, bool) {
	if v == nil {
		return "", "", true
	}
	if f.Min != nil {
		var n float64
		switch x := v.(type) {
		case int64:
			n = float64(x)
		case float64:
			n = x
		}
		if n < *f.Min {
			return "greater_than_equal", fmt.Sprintf("Input should be greater than or equal to %g", *f.Min), false
		}
	}
	if len(f.Allowed) > 0 {
		i, _ := v.(int64)
		for _, a := range f.Allowed {
			if i == a {
				return "", "", true
			}
		}
		return "literal_error", fmt.Sprintf("Input should be one of %v", f.Allowed), false
	}
	return "", "", true
}
