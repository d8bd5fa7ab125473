package sections

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

//go:embed catalog.json
var catalogJSON []byte

var loadCatalog = sync.OnceValues(func() ([]Definition, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(catalogJSON, &raw); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrInvalidDefinition, err)
	}
	defs := make([]Definition, 0, len(raw))
	for _, entry := range raw {
		def, err := DecodeDefinition(entry)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
})

// DefaultCatalog returns the built-in section definitions.
func DefaultCatalog() []Definition {
	defs, err := loadCatalog()
	if err != nil {
		panic(err)
	}
	return cloneDefinitions(defs)
}

// InitialState builds the section list of a freshly generated site: every
// definition enabled by default, in catalog order, with its default config.
func InitialState(defs []Definition) sites.SectionState {
	state := sites.SectionState{
		Order:   []string{},
		Enabled: map[string]bool{},
		Config:  map[string]map[string]any{},
	}
	for _, def := range defs {
		if !def.DefaultEnabled {
			continue
		}
		state.Order = append(state.Order, def.ID)
		state.Enabled[def.ID] = true
		state.Config[def.ID] = def.Defaults()
	}
	return state
}

// Index maps definitions by id.
func Index(defs []Definition) map[string]Definition {
	out := make(map[string]Definition, len(defs))
	for _, def := range defs {
		out[def.ID] = def
	}
	return out
}
