package chattools

import (
	"fmt"

	"gptkit/pkg/tools"
)

// Register adds the built-in tools to reg.
func Register(reg *tools.Registry) error {
	builtins := []tools.Tool{
		NewCurrentTime(),
	}
	for _, tool := range builtins {
		if _, err := reg.Add(tool); err != nil {
			return fmt.Errorf("register %s: %w", tools.TypeName(tool), err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in tools.
func NewRegistry() (*tools.Registry, error) {
	reg := tools.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
