package util

// Envelope is the JSON object every handler answers with.
type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

// Invalid carries per-field messages next to the error, keyed by form field.
func Invalid(message string, fields map[string][]string) Envelope {
	if fields == nil {
		fields = map[string][]string{}
	}
	return Envelope{"error": message, "fields": fields}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}
