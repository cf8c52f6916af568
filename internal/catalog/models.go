package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldSelect, FieldCheckbox:
		return true
	}
	return false
}

// FieldSchema describes one custom field attached to an event definition.
// Options is only meaningful for select fields.
type FieldSchema struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

type EventDefinition struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Color        string        `json:"color"`
	Description  string        `json:"description,omitempty"`
	CustomFields []FieldSchema `json:"customFields"`
}

type Category struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Color       string            `json:"color"`
	Description string            `json:"description,omitempty"`
	Events      []EventDefinition `json:"events"`
	CreatedAt   time.Time         `json:"-"`
}

// Event returns the event with the given id, or nil.
func (c *Category) Event(id string) *EventDefinition {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return &c.Events[i]
		}
	}
	return nil
}

const (
	DefaultCategoryID = "general"
	DefaultEventID    = "default_event"
	DefaultColor      = "#808080"
)

// DefaultCategory is seeded into an empty catalog.
func DefaultCategory() Category {
	return Category{
		ID:          DefaultCategoryID,
		Name:        "General",
		Color:       DefaultColor,
		Description: "General events",
		Events: []EventDefinition{{
			ID:           DefaultEventID,
			Name:         "Default Event",
			Color:        DefaultColor,
			Description:  "Default event type",
			CustomFields: []FieldSchema{},
		}},
	}
}

// Slug derives an id from a display name: lowercase, whitespace to underscore.
func Slug(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var colorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func IsColor(s string) bool {
	return colorRe.MatchString(s)
}

// Validate checks a field schema in isolation.
func (f FieldSchema) Validate() []domain.FieldError {
	var errs []domain.FieldError
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "field name is required"})
	}
	if !f.Type.Valid() {
		errs = append(errs, domain.FieldError{Field: f.Name, Message: fmt.Sprintf("unknown field type %q", f.Type)})
	}
	if f.Type == FieldSelect && len(f.Options) == 0 {
		errs = append(errs, domain.FieldError{Field: f.Name, Message: "select field needs at least one option"})
	}
	return errs
}

func validateEvent(prefix string, ev EventDefinition) []domain.FieldError {
	var errs []domain.FieldError
	if strings.TrimSpace(ev.Name) == "" {
		errs = append(errs, domain.FieldError{Field: prefix + "name", Message: "is required"})
	}
	if ev.ID == "" {
		errs = append(errs, domain.FieldError{Field: prefix + "id", Message: "is required"})
	}
	if !IsColor(ev.Color) {
		errs = append(errs, domain.FieldError{Field: prefix + "color", Message: "must be a #rrggbb color"})
	}
	seen := make(map[string]bool, len(ev.CustomFields))
	for _, f := range ev.CustomFields {
		for _, fe := range f.Validate() {
			fe.Field = prefix + "customFields." + fe.Field
			errs = append(errs, fe)
		}
		if seen[f.Name] {
			errs = append(errs, domain.FieldError{Field: prefix + "customFields." + f.Name, Message: "duplicate field name"})
		}
		seen[f.Name] = true
	}
	return errs
}

// Validate checks a category and all of its events.
func (c *Category) Validate() error {
	var errs []domain.FieldError
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "is required"})
	}
	if c.ID == "" {
		errs = append(errs, domain.FieldError{Field: "id", Message: "is required"})
	}
	if !IsColor(c.Color) {
		errs = append(errs, domain.FieldError{Field: "color", Message: "must be a #rrggbb color"})
	}
	seen := make(map[string]bool, len(c.Events))
	for i, ev := range c.Events {
		prefix := fmt.Sprintf("events[%d].", i)
		errs = append(errs, validateEvent(prefix, ev)...)
		if seen[ev.ID] {
			errs = append(errs, domain.FieldError{Field: prefix + "id", Message: fmt.Sprintf("duplicate event id %q", ev.ID)})
		}
		seen[ev.ID] = true
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
