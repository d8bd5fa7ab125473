// Package configeditor renders and validates the config form of one section
// and persists valid input through the reconciler.
package configeditor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/reconcile"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	configschema "github.com/tgdscott/DoneCast-sub013/internal/validation"
)

// ErrNoConfiguration is returned when a section has no definition to edit against.
var ErrNoConfiguration = errors.New("configeditor: section has no configuration options")

const (
	codeRequired = "sitebuilder.config.field_required"
	codeInvalid  = "sitebuilder.config.field_invalid"
	codeSchema   = "sitebuilder.config.schema_mismatch"
)

// DefinitionLookup resolves section definitions by id.
type DefinitionLookup interface {
	Lookup(id string) (sections.Definition, bool)
}

// ConfigPatcher persists the config of a single section.
type ConfigPatcher interface {
	PatchConfig(ctx context.Context, podcastID, sectionID string, config map[string]any) (*sites.SectionState, error)
}

// ValidationError lists field-level failures. It matches sites.ErrValidation.
type ValidationError struct {
	SectionID string
	Fields    validation.Errors
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return sites.ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", e.SectionID, e.Fields.Error())
}

// Unwrap implements errors.Is support for sites.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return sites.ErrValidation
}

// FieldMessages returns the message of each failing field.
func (e *ValidationError) FieldMessages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for name, err := range e.Fields {
		if err != nil {
			out[name] = err.Error()
		}
	}
	return out
}

// Code returns the validation code of a failing field, or "".
func (e *ValidationError) Code(field string) string {
	var verr validation.Error
	if errors.As(e.Fields[field], &verr) {
		return verr.Code()
	}
	return ""
}

// Option is one choice of a select field in a rendered form.
type Option struct {
	Value string
	Label string
}

// FormField is one rendered input.
type FormField struct {
	Name     string
	Label    string
	HelpText string
	Type     sections.FieldType
	Required bool
	Options  []Option
	Value    any
}

// Form is the rendered config form of a section. Empty forms show a "no
// configuration options" state.
type Form struct {
	SectionID string
	Label     string
	Empty     bool
	Fields    []FormField
}

// Editor edits section config for one website.
type Editor struct {
	reconciler *reconcile.Reconciler
	defs       DefinitionLookup
	api        ConfigPatcher
	podcastID  string
}

// New constructs an editor.
func New(reconciler *reconcile.Reconciler, defs DefinitionLookup, api ConfigPatcher, podcastID string) *Editor {
	return &Editor{
		reconciler: reconciler,
		defs:       defs,
		api:        api,
		podcastID:  podcastID,
	}
}

// Form renders sectionID's fields with their current values. Values missing
// from the draft show the field default.
func (e *Editor) Form(sectionID string) Form {
	def, ok := e.defs.Lookup(sectionID)
	if !ok || !def.HasFields() {
		form := Form{SectionID: sectionID, Empty: true}
		if ok {
			form.Label = def.Label
		}
		return form
	}
	current, _ := e.reconciler.Store().Config(sectionID)
	form := Form{SectionID: sectionID, Label: def.Label}
	for _, field := range def.Fields() {
		base := field.Base()
		entry := FormField{
			Name:     base.Name,
			Label:    base.Label,
			HelpText: base.HelpText,
			Type:     field.Type(),
			Required: base.Required,
			Options:  formOptions(field),
		}
		if value, ok := current[base.Name]; ok {
			entry.Value = value
		} else if value, ok := field.Default(); ok {
			entry.Value = value
		}
		form.Fields = append(form.Fields, entry)
	}
	return form
}

func formOptions(field sections.Field) []Option {
	var options []sections.Option
	switch typed := field.(type) {
	case sections.SelectField:
		options = typed.Options
	case sections.MultiSelectField:
		options = typed.Options
	default:
		return nil
	}
	out := make([]Option, 0, len(options))
	for _, option := range options {
		out = append(out, Option{Value: option.Value, Label: option.Label})
	}
	return out
}

// Coerce converts raw form values into the config blob stored for def.
// Required fields must be present and non-blank. Optional fields missing from
// values take their default or are omitted. Keys def does not declare are
// dropped.
func Coerce(def sections.Definition, values map[string]any) (map[string]any, error) {
	out := map[string]any{}
	errs := validation.Errors{}
	for _, field := range def.Fields() {
		base := field.Base()
		raw, present := values[base.Name]
		if base.Required && (!present || blankForRequired(field, raw)) {
			errs[base.Name] = validation.NewError(codeRequired, "is required")
			continue
		}
		if !present {
			if value, ok := field.Default(); ok {
				out[base.Name] = value
			}
			continue
		}
		value, err := field.Coerce(raw)
		if err != nil {
			errs[base.Name] = validation.NewError(codeInvalid, strings.TrimPrefix(err.Error(), "sections: "))
			continue
		}
		out[base.Name] = value
	}
	if len(errs) > 0 {
		return nil, &ValidationError{SectionID: def.ID, Fields: errs}
	}
	if err := configschema.ValidatePayload(def.Schema(), out); err != nil {
		return nil, &ValidationError{SectionID: def.ID, Fields: schemaErrors(err)}
	}
	return out, nil
}

// blankForRequired treats an explicit false toggle as an answer.
func blankForRequired(field sections.Field, raw any) bool {
	if field.Type() == sections.TypeToggle {
		return raw == nil
	}
	return sections.IsBlank(raw)
}

func schemaErrors(err error) validation.Errors {
	errs := validation.Errors{}
	issues := configschema.Issues(err)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Location < issues[j].Location })
	for _, issue := range issues {
		name := issue.Field()
		if name == "" {
			name = "_"
		}
		if _, exists := errs[name]; exists {
			continue
		}
		errs[name] = validation.NewError(codeSchema, issue.Message)
	}
	return errs
}

// SaveConfig validates values against the section definition and persists the
// coerced config as a single-section patch. Invalid input never reaches the
// network.
func (e *Editor) SaveConfig(ctx context.Context, sectionID string, values map[string]any) error {
	def, ok := e.defs.Lookup(sectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoConfiguration, sectionID)
	}
	if !e.reconciler.Store().Has(sectionID) {
		return fmt.Errorf("%w: %s", drafts.ErrSectionNotFound, sectionID)
	}
	config, err := Coerce(def, values)
	if err != nil {
		return err
	}
	return e.reconciler.Apply(ctx, reconcile.Mutation{
		Key:   sectionID,
		Label: "configure",
		Mutate: func(store *drafts.Store) error {
			return store.SetConfig(sectionID, config)
		},
		Persist: func(ctx context.Context) (*sites.SectionState, error) {
			return e.api.PatchConfig(ctx, e.podcastID, sectionID, sites.CloneConfig(config))
		},
	})
}
