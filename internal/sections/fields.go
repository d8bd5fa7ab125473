package sections

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// FieldType names a field variant on the wire.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeURL         FieldType = "url"
	TypeNumber      FieldType = "number"
	TypeColor       FieldType = "color"
	TypeToggle      FieldType = "toggle"
	TypeSelect      FieldType = "select"
	TypeMultiSelect FieldType = "multiselect"
	TypeImage       FieldType = "image"
)

var (
	ErrInvalidField      = errors.New("sections: invalid field descriptor")
	ErrUnknownField      = errors.New("sections: unknown field type")
	ErrMissingOptions    = errors.New("sections: field requires options")
	ErrInvalidValue      = errors.New("sections: invalid field value")
	ErrUnknownOption     = errors.New("sections: value is not an option")
	ErrInvalidDefault    = errors.New("sections: invalid field default")
	ErrDuplicateField    = errors.New("sections: duplicate field name")
	ErrInvalidDefinition = errors.New("sections: invalid definition")
	ErrBlankFieldName    = errors.New("sections: field name is required")
	ErrBlankDefinition   = errors.New("sections: definition id is required")
)

// Field is a configurable input of a section definition. The set of
// implementations is closed; each variant carries only the attributes valid for
// its type.
type Field interface {
	Base() FieldBase
	Type() FieldType
	// Default returns the declared default, already coerced.
	Default() (any, bool)
	// Coerce converts a raw form value into the stored representation. Blank
	// input yields the variant's empty value.
	Coerce(raw any) (any, error)
	schema() map[string]any
	isField()
}

// FieldBase holds the attributes shared by every variant.
type FieldBase struct {
	Name     string
	Label    string
	HelpText string
	Required bool
}

// Base implements Field.
func (b FieldBase) Base() FieldBase { return b }

type defaultValue struct {
	value any
	set   bool
}

// Default implements Field.
func (d defaultValue) Default() (any, bool) { return d.value, d.set }

// Option is a choice of a select or multiselect field.
type Option struct {
	Value string
	Label string
}

// TextField is a single line of text.
type TextField struct {
	FieldBase
	defaultValue
}

// TextareaField is multi-line text. Previews render it as Markdown.
type TextareaField struct {
	FieldBase
	defaultValue
}

// ImageField holds an image reference (URL or media id).
type ImageField struct {
	FieldBase
	defaultValue
}

// URLField holds an absolute http(s) URL.
type URLField struct {
	FieldBase
	defaultValue
}

// NumberField holds an integer; blank input is stored as nil.
type NumberField struct {
	FieldBase
	defaultValue
}

// ColorField holds a color. Six digit hex input is normalised to #rrggbb; any
// other value is kept as typed.
type ColorField struct {
	FieldBase
	defaultValue
}

// ToggleField holds a boolean.
type ToggleField struct {
	FieldBase
	defaultValue
}

// SelectField holds exactly one of Options.
type SelectField struct {
	FieldBase
	defaultValue
	Options []Option
}

// MultiSelectField holds a subset of Options.
type MultiSelectField struct {
	FieldBase
	defaultValue
	Options []Option
}

func (TextField) Type() FieldType        { return TypeText }
func (TextareaField) Type() FieldType    { return TypeTextarea }
func (ImageField) Type() FieldType       { return TypeImage }
func (URLField) Type() FieldType         { return TypeURL }
func (NumberField) Type() FieldType      { return TypeNumber }
func (ColorField) Type() FieldType       { return TypeColor }
func (ToggleField) Type() FieldType      { return TypeToggle }
func (SelectField) Type() FieldType      { return TypeSelect }
func (MultiSelectField) Type() FieldType { return TypeMultiSelect }

func (TextField) isField()        {}
func (TextareaField) isField()    {}
func (ImageField) isField()       {}
func (URLField) isField()         {}
func (NumberField) isField()      {}
func (ColorField) isField()       {}
func (ToggleField) isField()      {}
func (SelectField) isField()      {}
func (MultiSelectField) isField() {}

func (TextField) Coerce(raw any) (any, error)     { return coerceString(raw) }
func (TextareaField) Coerce(raw any) (any, error) { return coerceString(raw) }
func (ImageField) Coerce(raw any) (any, error)    { return coerceString(raw) }

func (URLField) Coerce(raw any) (any, error) {
	value, err := coerceString(raw)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(value.(string))
	if text == "" {
		return "", nil
	}
	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: must be an absolute http(s) URL", ErrInvalidValue)
	}
	return text, nil
}

func (NumberField) Coerce(raw any) (any, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return typed, nil
	case int64:
		return int(typed), nil
	case float64:
		if typed != float64(int(typed)) {
			return nil, fmt.Errorf("%w: must be a whole number", ErrInvalidValue)
		}
		return int(typed), nil
	case json.Number:
		return parseInteger(typed.String())
	case string:
		return parseInteger(typed)
	default:
		return nil, fmt.Errorf("%w: must be a number", ErrInvalidValue)
	}
}

func parseInteger(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: must be a whole number", ErrInvalidValue)
	}
	return n, nil
}

func (ColorField) Coerce(raw any) (any, error) {
	value, err := coerceString(raw)
	if err != nil {
		return nil, err
	}
	return normalizeColor(value.(string)), nil
}

func normalizeColor(value string) string {
	trimmed := strings.TrimSpace(value)
	hex := strings.TrimPrefix(trimmed, "#")
	if len(hex) != 6 {
		return value
	}
	for _, r := range hex {
		if !isHexDigit(r) {
			return value
		}
	}
	return "#" + strings.ToLower(hex)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (ToggleField) Coerce(raw any) (any, error) {
	switch typed := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return typed, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "on", "1", "yes":
			return true, nil
		case "", "false", "off", "0", "no":
			return false, nil
		}
	}
	return nil, fmt.Errorf("%w: must be on or off", ErrInvalidValue)
}

func (f SelectField) Coerce(raw any) (any, error) {
	value, err := coerceString(raw)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(value.(string))
	if text == "" {
		return nil, nil
	}
	if !hasOption(f.Options, text) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOption, text)
	}
	return text, nil
}

func (f MultiSelectField) Coerce(raw any) (any, error) {
	var candidates []string
	switch typed := raw.(type) {
	case nil:
	case []string:
		candidates = typed
	case []any:
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: options must be strings", ErrInvalidValue)
			}
			candidates = append(candidates, text)
		}
	case string:
		if strings.TrimSpace(typed) != "" {
			candidates = strings.Split(typed, ",")
		}
	default:
		return nil, fmt.Errorf("%w: must be a list of options", ErrInvalidValue)
	}
	selected := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		text := strings.TrimSpace(candidate)
		if text == "" || slices.Contains(selected, text) {
			continue
		}
		if !hasOption(f.Options, text) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, text)
		}
		selected = append(selected, text)
	}
	return selected, nil
}

func coerceString(raw any) (any, error) {
	switch typed := raw.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case fmt.Stringer:
		return typed.String(), nil
	case bool, int, int64, float64, json.Number:
		return fmt.Sprint(typed), nil
	default:
		return nil, fmt.Errorf("%w: must be text", ErrInvalidValue)
	}
}

func hasOption(options []Option, value string) bool {
	for _, option := range options {
		if option.Value == value {
			return true
		}
	}
	return false
}

func optionValues(options []Option) []any {
	out := make([]any, 0, len(options))
	for _, option := range options {
		out = append(out, option.Value)
	}
	return out
}

func (TextField) schema() map[string]any     { return map[string]any{"type": "string"} }
func (TextareaField) schema() map[string]any { return map[string]any{"type": "string"} }
func (ImageField) schema() map[string]any    { return map[string]any{"type": "string"} }
func (URLField) schema() map[string]any      { return map[string]any{"type": "string", "format": "uri"} }
func (ColorField) schema() map[string]any    { return map[string]any{"type": "string"} }
func (ToggleField) schema() map[string]any   { return map[string]any{"type": "boolean"} }

func (NumberField) schema() map[string]any {
	return map[string]any{"type": []any{"integer", "null"}}
}

func (f SelectField) schema() map[string]any {
	return map[string]any{
		"type": []any{"string", "null"},
		"enum": append(optionValues(f.Options), nil),
	}
}

func (f MultiSelectField) schema() map[string]any {
	return map[string]any{
		"type":        "array",
		"uniqueItems": true,
		"items": map[string]any{
			"type": "string",
			"enum": optionValues(f.Options),
		},
	}
}

// IsBlank reports whether a raw form value carries no input.
func IsBlank(raw any) bool {
	switch typed := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

type wireField struct {
	Name     string            `json:"name"`
	Type     FieldType         `json:"type"`
	Label    string            `json:"label,omitempty"`
	Options  []json.RawMessage `json:"options,omitempty"`
	Default  any               `json:"default,omitempty"`
	HelpText string            `json:"helpText,omitempty"`
}

type wireOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// DecodeField parses a wire field descriptor into its variant. Descriptors with
// an unknown type, a blank name, or a choice type without options are rejected.
func DecodeField(raw json.RawMessage, required bool) (Field, error) {
	var wire wireField
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	if err := decoder.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	name := strings.TrimSpace(wire.Name)
	if name == "" {
		return nil, ErrBlankFieldName
	}
	base := FieldBase{
		Name:     name,
		Label:    strings.TrimSpace(wire.Label),
		HelpText: strings.TrimSpace(wire.HelpText),
		Required: required,
	}
	if base.Label == "" {
		base.Label = humanize(name)
	}
	options, err := decodeOptions(wire.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
	}

	var field Field
	switch FieldType(strings.ToLower(strings.TrimSpace(string(wire.Type)))) {
	case TypeText:
		field = TextField{FieldBase: base}
	case TypeTextarea:
		field = TextareaField{FieldBase: base}
	case TypeImage:
		field = ImageField{FieldBase: base}
	case TypeURL:
		field = URLField{FieldBase: base}
	case TypeNumber:
		field = NumberField{FieldBase: base}
	case TypeColor:
		field = ColorField{FieldBase: base}
	case TypeToggle:
		field = ToggleField{FieldBase: base}
	case TypeSelect:
		if len(options) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingOptions, name)
		}
		field = SelectField{FieldBase: base, Options: options}
	case TypeMultiSelect:
		if len(options) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingOptions, name)
		}
		field = MultiSelectField{FieldBase: base, Options: options}
	default:
		return nil, fmt.Errorf("%w: %s (%q)", ErrUnknownField, name, wire.Type)
	}

	if wire.Default == nil {
		return field, nil
	}
	return WithDefault(field, wire.Default)
}

// WithDefault returns a copy of field whose default is raw coerced by the variant.
func WithDefault(field Field, raw any) (Field, error) {
	value, err := field.Coerce(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefault, field.Base().Name, err)
	}
	def := defaultValue{value: value, set: true}
	switch typed := field.(type) {
	case TextField:
		typed.defaultValue = def
		return typed, nil
	case TextareaField:
		typed.defaultValue = def
		return typed, nil
	case ImageField:
		typed.defaultValue = def
		return typed, nil
	case URLField:
		typed.defaultValue = def
		return typed, nil
	case NumberField:
		typed.defaultValue = def
		return typed, nil
	case ColorField:
		typed.defaultValue = def
		return typed, nil
	case ToggleField:
		typed.defaultValue = def
		return typed, nil
	case SelectField:
		typed.defaultValue = def
		return typed, nil
	case MultiSelectField:
		typed.defaultValue = def
		return typed, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownField, field)
	}
}

func decodeOptions(raw []json.RawMessage) ([]Option, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Option, 0, len(raw))
	for _, entry := range raw {
		var value string
		if err := json.Unmarshal(entry, &value); err == nil {
			value = strings.TrimSpace(value)
			if value != "" {
				out = append(out, Option{Value: value, Label: value})
			}
			continue
		}
		var option wireOption
		if err := json.Unmarshal(entry, &option); err != nil {
			return nil, err
		}
		option.Value = strings.TrimSpace(option.Value)
		if option.Value == "" {
			continue
		}
		if strings.TrimSpace(option.Label) == "" {
			option.Label = option.Value
		}
		out = append(out, Option{Value: option.Value, Label: option.Label})
	}
	return out, nil
}

// EncodeField renders a field in its wire form.
func EncodeField(field Field) ([]byte, error) {
	base := field.Base()
	wire := struct {
		Name     string    `json:"name"`
		Type     FieldType `json:"type"`
		Label    string    `json:"label,omitempty"`
		Options  []any     `json:"options,omitempty"`
		Default  any       `json:"default,omitempty"`
		HelpText string    `json:"helpText,omitempty"`
	}{
		Name:     base.Name,
		Type:     field.Type(),
		Label:    base.Label,
		HelpText: base.HelpText,
	}
	if value, ok := field.Default(); ok {
		wire.Default = value
	}
	var options []Option
	switch typed := field.(type) {
	case SelectField:
		options = typed.Options
	case MultiSelectField:
		options = typed.Options
	}
	for _, option := range options {
		if option.Label == "" || option.Label == option.Value {
			wire.Options = append(wire.Options, option.Value)
			continue
		}
		wire.Options = append(wire.Options, wireOption{Value: option.Value, Label: option.Label})
	}
	return json.Marshal(wire)
}

func humanize(name string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	if replaced == "" {
		return replaced
	}
	return strings.ToUpper(replaced[:1]) + replaced[1:]
}
