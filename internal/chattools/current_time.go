package chattools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gptkit/pkg/tools"
)

// CurrentTime reports the wall clock in a requested IANA time zone.
type CurrentTime struct {
	tools.Meta

	now func() time.Time
}

// NewCurrentTime returns the tool with its provider description.
func NewCurrentTime() *CurrentTime {
	return &CurrentTime{
		Meta: tools.Meta{
			Description: "Returns the current date and time, optionally in a given IANA time zone such as Europe/Paris.",
		},
		now: time.Now,
	}
}

func (t *CurrentTime) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA time zone name. Defaults to UTC.",
			},
		},
		"required": []string{},
	}
}

func (t *CurrentTime) Invoke(_ context.Context, args map[string]any) (any, error) {
	zone := "UTC"
	if raw, ok := args["timezone"]; ok {
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("timezone must be a string, got %T", raw)
		}
		if name = strings.TrimSpace(name); name != "" {
			zone = name
		}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", zone, err)
	}

	clock := t.now
	if clock == nil {
		clock = time.Now
	}
	now := clock().In(loc)
	return map[string]any{
		"timezone": loc.String(),
		"time":     now.Format(time.RFC3339),
		"weekday":  now.Weekday().String(),
	}, nil
}
