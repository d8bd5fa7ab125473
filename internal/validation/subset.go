package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedKeyword reports a schema keyword outside the supported subset.
var ErrUnsupportedKeyword = errors.New("unsupported schema keyword")

var allowedKeywords = map[string]struct{}{
	"$schema":              {},
	"$id":                  {},
	"type":                 {},
	"properties":           {},
	"required":             {},
	"items":                {},
	"enum":                 {},
	"const":                {},
	"default":              {},
	"title":                {},
	"description":          {},
	"format":               {},
	"pattern":              {},
	"minimum":              {},
	"maximum":              {},
	"minLength":            {},
	"maxLength":            {},
	"uniqueItems":          {},
	"additionalProperties": {},
}

// ValidateSubset ensures the schema only uses keywords section configs rely on.
// Keys prefixed with "x-" are extensions and are ignored.
func ValidateSubset(schema map[string]any) error {
	return validateNode(schema, "")
}

func validateNode(node map[string]any, path string) error {
	for key, value := range node {
		if strings.HasPrefix(key, "x-") {
			continue
		}
		if _, ok := allowedKeywords[key]; !ok {
			return fmt.Errorf("%w: %s at %s", ErrUnsupportedKeyword, key, displayPath(path))
		}
		switch key {
		case "properties":
			props, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: properties at %s", ErrUnsupportedKeyword, displayPath(path))
			}
			for name, child := range props {
				childSchema, ok := child.(map[string]any)
				if !ok {
					return fmt.Errorf("%w: properties/%s at %s", ErrUnsupportedKeyword, name, displayPath(path))
				}
				if err := validateNode(childSchema, path+"/properties/"+name); err != nil {
					return err
				}
			}
		case "items":
			childSchema, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: items at %s", ErrUnsupportedKeyword, displayPath(path))
			}
			if err := validateNode(childSchema, path+"/items"); err != nil {
				return err
			}
		case "additionalProperties":
			switch typed := value.(type) {
			case bool:
			case map[string]any:
				if err := validateNode(typed, path+"/additionalProperties"); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: additionalProperties at %s", ErrUnsupportedKeyword, displayPath(path))
			}
		}
	}
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "#"
	}
	return "#" + path
}
