package models

import (
	"fmt"
	"sort"
)

// ExtensionsPrefix is where the catalog publishes its metadata extension schemas.
const ExtensionsPrefix = "https://raw.githubusercontent.com/opendatadiscovery/opendatadiscovery-specification/main/specification/extensions"

// DefinitionType selects the metadata extension definition.
type DefinitionType string

const (
	DefinitionDataSet      DefinitionType = "DataSetExtension"
	DefinitionDataSetField DefinitionType = "DataSetFieldExtension"
)

// MetadataExtension is a schema-tagged bag of source specific properties.
type MetadataExtension struct {
	SchemaURL string                 `json:"schema_url"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// NewMetadataExtension builds an extension for the given data source kind.
// Nil values are dropped; with flatten, nested maps are folded into dotted
// keys ("a.b.c").
func NewMetadataExtension(datasource string, definition DefinitionType, data map[string]interface{}, flatten bool) MetadataExtension {
	if flatten {
		data = FlattenMap(data)
	}

	metadata := make(map[string]interface{}, len(data))
	for k, v := range data {
		if v == nil {
			continue
		}
		metadata[k] = v
	}

	return MetadataExtension{
		SchemaURL: fmt.Sprintf("%s/%s.json#/definitions/%s", ExtensionsPrefix, datasource, definition),
		Metadata:  metadata,
	}
}

// FlattenMap folds nested maps into dotted keys. Empty nested maps are kept
// as empty maps under their own key.
func FlattenMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	flattenInto(out, "", data)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, data map[string]interface{}) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		nested, ok := data[k].(map[string]interface{})
		if !ok {
			out[key] = data[k]
			continue
		}
		if len(nested) == 0 {
			out[key] = map[string]interface{}{}
			continue
		}
		flattenInto(out, key, nested)
	}
}
