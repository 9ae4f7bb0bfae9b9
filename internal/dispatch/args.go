package dispatch

import (
	"encoding/json"
	"fmt"
	"math"

	"movies-mcp/internal/catalog"
)

// InvocationError reports a malformed or unknown invocation.
type InvocationError struct {
	Message string
}

func (e *InvocationError) Error() string { return e.Message }

// ErrMissingArguments is returned when an invocation carries no argument map.
var ErrMissingArguments = &InvocationError{Message: "Missing arguments"}

func unknownTool(name string) error {
	return &InvocationError{Message: "Unknown tool: " + name}
}

// arguments holds declared parameters after defaults have been applied.
// Integer params are int64, string params are string.
type arguments map[string]any

func (a arguments) str(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a arguments) integer(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

func (a arguments) page() int { return int(a.integer("page")) }

// bind extracts the parameters declared by d from raw. Undeclared keys are
// ignored.
func bind(d catalog.Descriptor, raw map[string]any) (arguments, error) {
	out := make(arguments, len(d.Params))
	for _, p := range d.Params {
		v, ok := raw[p.Name]
		if !ok || v == nil || v == "" {
			if p.Required {
				return nil, &InvocationError{Message: "Missing required argument: " + p.Name}
			}
			v = p.Default
		}
		if v == nil {
			continue
		}
		switch p.Type {
		case catalog.TypeInteger:
			n, ok := toInt64(v)
			if !ok {
				return nil, invalidArgument(p, v)
			}
			// 0 counts as omitted for defaulted params.
			if n == 0 && p.Default != nil {
				n, _ = toInt64(p.Default)
			}
			out[p.Name] = n
		case catalog.TypeString:
			s, ok := v.(string)
			if !ok {
				return nil, invalidArgument(p, v)
			}
			out[p.Name] = s
		default:
			out[p.Name] = v
		}
	}
	return out, nil
}

func invalidArgument(p catalog.Param, v any) error {
	return &InvocationError{Message: fmt.Sprintf("Invalid argument %s: expected %s, got %T", p.Name, p.Type, v)}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
