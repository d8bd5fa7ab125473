package sections

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Definition describes a section type and its configurable fields. Definitions
// are immutable once decoded.
type Definition struct {
	ID             string
	Label          string
	Category       string
	Icon           string
	Description    string
	DefaultEnabled bool
	Required       []Field
	Optional       []Field
}

type wireDefinition struct {
	ID             string            `json:"id"`
	Label          string            `json:"label"`
	Category       string            `json:"category,omitempty"`
	Icon           string            `json:"icon,omitempty"`
	Description    string            `json:"description,omitempty"`
	DefaultEnabled bool              `json:"defaultEnabled"`
	RequiredFields []json.RawMessage `json:"requiredFields"`
	OptionalFields []json.RawMessage `json:"optionalFields"`
}

// DecodeDefinition parses one definition from its wire form.
func DecodeDefinition(raw json.RawMessage) (Definition, error) {
	var def Definition
	if err := def.UnmarshalJSON(raw); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// UnmarshalJSON decodes and validates the wire form.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var wire wireDefinition
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	id := strings.TrimSpace(wire.ID)
	if id == "" {
		return ErrBlankDefinition
	}
	required, err := decodeFields(wire.RequiredFields, true)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, id, err)
	}
	optional, err := decodeFields(wire.OptionalFields, false)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, id, err)
	}
	decoded := Definition{
		ID:             id,
		Label:          strings.TrimSpace(wire.Label),
		Category:       strings.TrimSpace(wire.Category),
		Icon:           strings.TrimSpace(wire.Icon),
		Description:    strings.TrimSpace(wire.Description),
		DefaultEnabled: wire.DefaultEnabled,
		Required:       required,
		Optional:       optional,
	}
	if decoded.Label == "" {
		decoded.Label = humanize(id)
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*d = decoded
	return nil
}

func decodeFields(raw []json.RawMessage, required bool) ([]Field, error) {
	out := make([]Field, 0, len(raw))
	for _, entry := range raw {
		field, err := DecodeField(entry, required)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	return out, nil
}

// MarshalJSON renders the wire form.
func (d Definition) MarshalJSON() ([]byte, error) {
	wire := wireDefinition{
		ID:             d.ID,
		Label:          d.Label,
		Category:       d.Category,
		Icon:           d.Icon,
		Description:    d.Description,
		DefaultEnabled: d.DefaultEnabled,
		RequiredFields: []json.RawMessage{},
		OptionalFields: []json.RawMessage{},
	}
	for _, field := range d.Required {
		encoded, err := EncodeField(field)
		if err != nil {
			return nil, err
		}
		wire.RequiredFields = append(wire.RequiredFields, encoded)
	}
	for _, field := range d.Optional {
		encoded, err := EncodeField(field)
		if err != nil {
			return nil, err
		}
		wire.OptionalFields = append(wire.OptionalFields, encoded)
	}
	return json.Marshal(wire)
}

// Validate checks the id is present and field names are unique across the
// required and optional lists.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrBlankDefinition
	}
	seen := map[string]struct{}{}
	for _, field := range d.Fields() {
		if field == nil {
			return fmt.Errorf("%w: %s: nil field", ErrInvalidDefinition, d.ID)
		}
		name := field.Base().Name
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, d.ID, ErrBlankFieldName)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s: %w: %s", ErrInvalidDefinition, d.ID, ErrDuplicateField, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Fields returns required fields followed by optional ones.
func (d Definition) Fields() []Field {
	out := make([]Field, 0, len(d.Required)+len(d.Optional))
	out = append(out, d.Required...)
	out = append(out, d.Optional...)
	return out
}

// HasFields reports whether the definition declares any configurable field.
func (d Definition) HasFields() bool {
	return len(d.Required)+len(d.Optional) > 0
}

// Field looks a field up by name.
func (d Definition) Field(name string) (Field, bool) {
	for _, field := range d.Fields() {
		if field.Base().Name == name {
			return field, true
		}
	}
	return nil, false
}

// Defaults returns the config a freshly added instance starts with: every field
// that declares a default.
func (d Definition) Defaults() map[string]any {
	out := map[string]any{}
	for _, field := range d.Fields() {
		if value, ok := field.Default(); ok {
			out[field.Base().Name] = cloneDefault(value)
		}
	}
	return out
}

func cloneDefault(value any) any {
	if list, ok := value.([]string); ok {
		return append([]string{}, list...)
	}
	return value
}

// Schema returns the JSON schema a coerced config payload must satisfy.
func (d Definition) Schema() map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, field := range d.Fields() {
		base := field.Base()
		properties[base.Name] = field.schema()
		if base.Required {
			required = append(required, base.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
