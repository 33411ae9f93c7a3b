// Package models holds the catalog payloads exchanged with the platform.
//
// The collector core treats entities as opaque: it only counts, slices and
// forwards DataEntityList items. The fields below are the subset of the
// catalog schema the reference adapters fill in.
package models

import "time"

// DataEntityType is the catalog kind of a discovered item.
type DataEntityType string

const (
	DataEntityTypeTable          DataEntityType = "TABLE"
	DataEntityTypeView           DataEntityType = "VIEW"
	DataEntityTypeFile           DataEntityType = "FILE"
	DataEntityTypeKafkaTopic     DataEntityType = "KAFKA_TOPIC"
	DataEntityTypeDatabaseSchema DataEntityType = "DATABASE_SERVICE"
	DataEntityTypeDAG            DataEntityType = "DAG"
)

// Field types understood by the catalog.
const (
	FieldTypeString   = "TYPE_STRING"
	FieldTypeNumber   = "TYPE_NUMBER"
	FieldTypeInteger  = "TYPE_INTEGER"
	FieldTypeBoolean  = "TYPE_BOOLEAN"
	FieldTypeChar     = "TYPE_CHAR"
	FieldTypeDateTime = "TYPE_DATETIME"
	FieldTypeTime     = "TYPE_TIME"
	FieldTypeBinary   = "TYPE_BINARY"
	FieldTypeList     = "TYPE_LIST"
	FieldTypeMap      = "TYPE_MAP"
	FieldTypeStruct   = "TYPE_STRUCT"
	FieldTypeUnknown  = "TYPE_UNKNOWN"
)

// DataEntity is one discovered metadata item.
type DataEntity struct {
	Oddrn           string              `json:"oddrn"`
	Name            string              `json:"name"`
	Type            DataEntityType      `json:"type"`
	Owner           string              `json:"owner,omitempty"`
	Description     string              `json:"description,omitempty"`
	Metadata        []MetadataExtension `json:"metadata,omitempty"`
	CreatedAt       *time.Time          `json:"created_at,omitempty"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty"`
	Dataset         *DataSet            `json:"dataset,omitempty"`
	DataEntityGroup *DataEntityGroup    `json:"data_entity_group,omitempty"`
}

// DataSet describes a tabular entity.
type DataSet struct {
	ParentOddrn string         `json:"parent_oddrn,omitempty"`
	RowsNumber  *int64         `json:"rows_number,omitempty"`
	FieldList   []DataSetField `json:"field_list"`
}

// DataSetField is one column of a DataSet.
type DataSetField struct {
	Oddrn string           `json:"oddrn"`
	Name  string           `json:"name"`
	Type  DataSetFieldType `json:"type"`
}

// DataSetFieldType carries the mapped and raw type of a field.
type DataSetFieldType struct {
	Type        string `json:"type"`
	LogicalType string `json:"logical_type,omitempty"`
	IsNullable  bool   `json:"is_nullable"`
}

// DataEntityGroup groups other entities by oddrn (a schema, a bucket...).
type DataEntityGroup struct {
	EntitiesList []string `json:"entities_list"`
}

// DataEntityList is the ingestion payload: items of one data source.
type DataEntityList struct {
	DataSourceOddrn string       `json:"data_source_oddrn"`
	Items           []DataEntity `json:"items"`
}

// Len returns the number of items, tolerating a nil list.
func (l *DataEntityList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// DataSource is the registration record of one adapter.
type DataSource struct {
	Oddrn       string `json:"oddrn"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DataSourceList is the registration payload.
type DataSourceList struct {
	Items []DataSource `json:"items"`
}
