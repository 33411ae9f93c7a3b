package plugin

import (
	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Raw is one undecoded plugin definition.
type Raw = map[string]interface{}

// RawList converts a parsed YAML "plugins" value into raw definitions. A nil
// value is an empty list.
func RawList(v interface{}) ([]Raw, error) {
	switch list := v.(type) {
	case nil:
		return []Raw{}, nil
	case []Raw:
		return list, nil
	case []interface{}:
		out := make([]Raw, 0, len(list))
		for i, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeValidation, "plugin #%d is not a mapping but %T", i, item)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "plugins must be a list, got %T", v)
	}
}

// RawName returns the "name" of a raw definition, or "" if it has none.
func RawName(raw Raw) string {
	name, _ := raw["name"].(string)
	return name
}
