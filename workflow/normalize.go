package workflow

import "reflect"

// Output shape types.
const (
	OutputText        = "text"
	OutputLLMResponse = "llm_response"
	OutputArray       = "array"
	OutputString      = "string"
	OutputNumber      = "number"
	OutputBoolean     = "boolean"
)

// NormalizeOutput converts the last node's output into the shape stored on
// the execution:
//
//	nil                      -> {result: nil}
//	{output: "s", ...}       -> {result: "s", type: "text"}
//	{output: {...}, ...}     -> the inner object
//	{output: other, ...}     -> other, normalized
//	{content: c, ...}        -> {result: c, type: "llm_response"}
//	any other object         -> unchanged
//	list                     -> {result: list, type: "array"}
//	string, number, boolean  -> {result: v, type: "string"|"number"|"boolean"}
func NormalizeOutput(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return map[string]any{"result": nil}
	case map[string]any:
		if out, ok := t["output"]; ok {
			switch o := out.(type) {
			case string:
				return map[string]any{"result": o, "type": OutputText}
			case map[string]any:
				return o
			default:
				return NormalizeOutput(o)
			}
		}
		if content, ok := t["content"]; ok {
			return map[string]any{"result": content, "type": OutputLLMResponse}
		}
		return t
	case []any:
		return map[string]any{"result": t, "type": OutputArray}
	case string:
		return map[string]any{"result": t, "type": OutputString}
	case bool:
		return map[string]any{"result": t, "type": OutputBoolean}
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return map[string]any{"result": v, "type": OutputNumber}
	case reflect.String:
		return map[string]any{"result": v, "type": OutputString}
	case reflect.Bool:
		return map[string]any{"result": v, "type": OutputBoolean}
	}

	// Typed maps, slices and structs take the generic route once.
	if g := toGeneric(v); g != nil {
		switch g.(type) {
		case map[string]any, []any:
			return NormalizeOutput(g)
		}
	}
	return map[string]any{"result": v}
}
