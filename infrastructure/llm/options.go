package llm

// Request option keys shared by every adapter.
const (
	OptMaxTokens   = "max_tokens"
	OptModel       = "model"
	OptSystem      = "system"
	OptTemperature = "temperature"
	OptTopP        = "top_p"
)

// DefaultMaxTokens is used by backends that require an explicit limit.
const DefaultMaxTokens = 1024

// RequestOptions is the parsed form of an option map.
type RequestOptions struct {
	MaxTokens int
	Model     string
	// Temperature is nil when the backend default should be used.
	Temperature *float64
	TopP        *float64
	System      string
	// Extra holds unrecognized keys for adapter-specific use.
	Extra map[string]any
}

// ParseRequestOptions extracts the standard keys from opts. Missing or
// invalid values fall back to defaults; unknown keys land in Extra.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, OptMaxTokens, DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, OptModel, defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, OptSystem, "", nil),
		Extra:     make(map[string]any),
	}

	if temp := ExtractOptionalFloat64(opts, OptTemperature, -1, IsValidTemperature); temp != -1 {
		options.Temperature = &temp
	}
	if topP := ExtractOptionalFloat64(opts, OptTopP, -1, IsValidTopP); topP != -1 {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case OptMaxTokens, OptModel, OptSystem, OptTemperature, OptTopP:
		default:
			options.Extra[k] = v
		}
	}
	return options
}

// ExtractOptionalInt returns opts[key] when it is an int accepted by
// validator, and defaultVal otherwise.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	v, ok := opts[key].(int)
	if !ok || (validator != nil && !validator(v)) {
		return defaultVal
	}
	return v
}

// ExtractOptionalString returns opts[key] when it is a string accepted by
// validator, and defaultVal otherwise.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	v, ok := opts[key].(string)
	if !ok || (validator != nil && !validator(v)) {
		return defaultVal
	}
	return v
}

// ExtractOptionalFloat64 returns opts[key] when it is a float64 accepted by
// validator, and defaultVal otherwise.
func ExtractOptionalFloat64(opts map[string]any, key string, defaultVal float64, validator func(float64) bool) float64 {
	v, ok := opts[key].(float64)
	if !ok || (validator != nil && !validator(v)) {
		return defaultVal
	}
	return v
}
