package api

// Tool represents a function/tool that the model can call
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function represents a function definition
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewFunctionTool builds a function tool definition
func NewFunctionTool(name, description string, parameters map[string]any) Tool {
	return Tool{
		Type: "function",
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// StringParams builds an object schema whose properties are all required strings
func StringParams(props ...[2]string) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for _, p := range props {
		properties[p[0]] = map[string]any{
			"type":        "string",
			"description": p[1],
		}
		required = append(required, p[0])
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
