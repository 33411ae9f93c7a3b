package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMetadataExtension(t *testing.T) {
	ext := NewMetadataExtension("postgresql", DefinitionDataSet, map[string]interface{}{
		"table_type": "BASE TABLE",
		"comment":    nil,
		"storage": map[string]interface{}{
			"size":    int64(1024),
			"options": map[string]interface{}{},
		},
	}, true)

	assert.Equal(t,
		ExtensionsPrefix+"/postgresql.json#/definitions/DataSetExtension",
		ext.SchemaURL)
	assert.Equal(t, map[string]interface{}{
		"table_type":      "BASE TABLE",
		"storage.size":    int64(1024),
		"storage.options": map[string]interface{}{},
	}, ext.Metadata)
}

func TestDataEntityListLen(t *testing.T) {
	var nilList *DataEntityList
	assert.Equal(t, 0, nilList.Len())
	assert.Equal(t, 2, (&DataEntityList{Items: make([]DataEntity, 2)}).Len())
}
