package tools

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// ErrConfiguration marks tool references that cannot be resolved or do not
// satisfy the Tool contract.
var ErrConfiguration = errors.New("tool configuration error")

const maxNameLength = 64

// Tool is a function the model may ask the caller to run.
type Tool interface {
	// Parameters returns the JSON Schema object describing accepted arguments.
	Parameters() map[string]any
	// Invoke runs the tool with the model-supplied arguments.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Meta overrides the derived descriptor fields when embedded in a Tool.
// Empty Name falls back to the snake_case type name.
type Meta struct {
	Name        string
	Description string
	Strict      bool
}

// ToolMeta returns m; it lets Describe find embedded metadata.
func (m Meta) ToolMeta() Meta { return m }

type metaProvider interface {
	ToolMeta() Meta
}

// Descriptor is the provider-facing description of a tool.
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]any
	Strict      bool
}

// Describe builds the descriptor for t.
func Describe(t Tool) (Descriptor, error) {
	if isNil(t) {
		return Descriptor{}, fmt.Errorf("%w: tool is nil", ErrConfiguration)
	}
	var meta Meta
	if provider, ok := t.(metaProvider); ok {
		meta = provider.ToolMeta()
	}

	name := strings.TrimSpace(meta.Name)
	if name == "" {
		typeName := TypeName(t)
		if typeName == "" {
			return Descriptor{}, fmt.Errorf("%w: cannot derive a name for anonymous type %T; set Meta.Name", ErrConfiguration, t)
		}
		name = SnakeName(typeName)
	}
	if err := ValidateName(name); err != nil {
		return Descriptor{}, err
	}

	params := t.Parameters()
	if params == nil {
		params = map[string]any{}
	}
	return Descriptor{
		Name:        name,
		Description: meta.Description,
		Parameters:  params,
		Strict:      meta.Strict,
	}, nil
}

// SnakeName inserts an underscore before every uppercase letter that is not
// the first character and lowercases the result. Runs of capitals are split
// letter by letter: ABTest becomes a_b_test.
func SnakeName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// TypeName returns the bare type name of t with pointer indirections removed.
func TypeName(t any) string {
	typ := reflect.TypeOf(t)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil {
		return ""
	}
	return typ.Name()
}

// ValidateName enforces the provider limits: 1-64 characters from
// [a-zA-Z0-9_-].
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", ErrConfiguration)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: tool name %q exceeds %d characters", ErrConfiguration, name, maxNameLength)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: tool name %q contains invalid character %q", ErrConfiguration, name, r)
		}
	}
	return nil
}

func isNil(t Tool) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}
