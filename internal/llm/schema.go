package llm

// Gemini response schemas use the OpenAPI subset with upper-case type names.

type Schema map[string]any

func String() Schema { return Schema{"type": "STRING"} }

func StringArray() Schema { return Schema{"type": "ARRAY", "items": String()} }

// Object builds an OBJECT schema; every property listed in required must be present.
func Object(props map[string]Schema, required ...string) Schema {
	p := make(map[string]any, len(props))
	for k, v := range props {
		p[k] = v
	}
	s := Schema{"type": "OBJECT", "properties": p}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
