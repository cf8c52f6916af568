package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

// CoerceFields validates raw field values against an event's schema and
// returns them converted to their schema types: text and select as string,
// number as float64, checkbox as bool. Keys not in the schema are dropped.
// A required checkbox must be checked, following HTML form semantics.
func CoerceFields(schema []FieldSchema, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	var errs []domain.FieldError

	for _, f := range schema {
		v, present := raw[f.Name]
		if present && isBlank(v) {
			present = false
		}

		if f.Type == FieldCheckbox {
			checked := false
			if present {
				b, err := toBool(v)
				if err != nil {
					errs = append(errs, domain.FieldError{Field: f.Name, Message: err.Error()})
					continue
				}
				checked = b
			}
			if f.Required && !checked {
				errs = append(errs, domain.FieldError{Field: f.Name, Message: "is required"})
				continue
			}
			out[f.Name] = checked
			continue
		}

		if !present {
			if f.Required {
				errs = append(errs, domain.FieldError{Field: f.Name, Message: "is required"})
			}
			continue
		}

		switch f.Type {
		case FieldText:
			out[f.Name] = toText(v)
		case FieldNumber:
			n, err := toNumber(v)
			if err != nil {
				errs = append(errs, domain.FieldError{Field: f.Name, Message: err.Error()})
				continue
			}
			out[f.Name] = n
		case FieldSelect:
			s := toText(v)
			if !slices.Contains(f.Options, s) {
				errs = append(errs, domain.FieldError{Field: f.Name, Message: fmt.Sprintf("%q is not one of %v", s, f.Options)})
				continue
			}
			out[f.Name] = s
		default:
			errs = append(errs, domain.FieldError{Field: f.Name, Message: fmt.Sprintf("unknown field type %q", f.Type)})
		}
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return out, nil
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toNumber(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		n = f
	default:
		return 0, fmt.Errorf("must be a number")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return n, nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
	case float64:
		return x != 0, nil
	}
	return false, fmt.Errorf("must be a boolean")
}
