package dialog

import (
	"context"
	"strconv"
	"strings"

	"konung-miniapp-svc/src/internal/models"
)

// Sender identifies the user a message came from, with the profile fields the
// transport knows about.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Step is one prompt/validate/store stage. Validate returns the parsed value
// recorded under Field, or an error to re-prompt the same step.
type Step struct {
	Field       string
	Prompt      string
	ErrorPrompt string
	Validate    func(input string) (any, error)
}

// Scene is a named, ordered multi-step dialog definition. OnComplete receives
// all collected fields and returns the final reply; the dialog state is gone
// by the time it runs.
type Scene struct {
	ID         string
	Steps      []Step
	OnComplete func(ctx context.Context, sender Sender, fields map[string]any) (string, error)
}

// NonEmptyString validates a trimmed, length-bounded string input.
func NonEmptyString(maxLen int) func(string) (any, error) {
	return func(input string) (any, error) {
		value := strings.TrimSpace(input)
		if value == "" || len([]rune(value)) > maxLen {
			return nil, models.ErrInvalidInput
		}
		return value, nil
	}
}

// IntInRange validates an integer input within [min, max], bounds inclusive.
func IntInRange(min, max int) func(string) (any, error) {
	return func(input string) (any, error) {
		value, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return nil, models.ErrInvalidInput
		}
		if value < min || value > max {
			return nil, models.ErrInvalidInput
		}
		return value, nil
	}
}

// IntField reads an integer collected field. Values read back from the store
// arrive as json numbers, so both int and float64 are accepted.
func IntField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// StringField reads a string collected field.
func StringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
