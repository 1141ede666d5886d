package scaffold

import "text/template"

var toolTemplate = template.Must(template.New("tool").Parse(`package {{.Package}}

import (
	"context"

	"{{.ToolsImport}}"
)

// {{.Type}} is a chat tool. Its default provider name is {{.ToolName}}.
type {{.Type}} struct {
	// Meta overrides the name, description, and strict flag sent to the
	// provider. An empty Name falls back to {{.ToolName}}.
	tools.Meta
}

// New{{.Type}} returns the tool with its provider description.
func New{{.Type}}() *{{.Type}} {
	return &{{.Type}}{
		Meta: tools.Meta{
			Description: "",
			Strict:      false,
		},
	}
}

// Parameters describes the accepted arguments as a JSON Schema object.
func (t *{{.Type}}) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			// "param_name": map[string]any{
			// 	"type":        "string",
			// 	"description": "Description of the parameter",
			// },
		},
		"required": []string{},
	}
}

// Invoke runs the tool with the arguments chosen by the model.
func (t *{{.Type}}) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return map[string]any{
		"success": true,
		"message": "Tool executed successfully",
	}, nil
}
`))
