// Package sqlmeta maps relational catalog rows (information_schema and
// friends) to data entities. The SQL adapters share it; each brings its own
// queries and type table.
package sqlmeta

import (
	"strings"

	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
)

// Table types as reported by information_schema.tables.
const (
	TableTypeBase = "BASE TABLE"
	TableTypeView = "VIEW"
)

// Column is one row of information_schema.columns.
type Column struct {
	Name     string
	DataType string
	Nullable bool
	Default  *string
	Comment  string
}

// Table is one row of information_schema.tables with its columns.
type Table struct {
	Schema  string
	Name    string
	Type    string
	Comment string
	Rows    *int64
	Columns []Column
}

// IsView reports whether the table is a view of any kind.
func (t Table) IsView() bool {
	return strings.Contains(strings.ToUpper(t.Type), "VIEW")
}

// TypeMap maps lower-cased source types to catalog field types.
type TypeMap map[string]string

// Lookup returns the catalog type of dataType, ignoring a length or
// precision suffix such as varchar(255).
func (m TypeMap) Lookup(dataType string) string {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if ft, ok := m[t]; ok {
		return ft
	}
	return models.FieldTypeUnknown
}

// Mapper builds entities under one database.
type Mapper struct {
	// Source names the metadata extension, e.g. "postgresql"
	Source    string
	Generator *oddrn.Generator
	Database  string
	Types     TypeMap
}

// DatabaseOddrn is the oddrn of the database, also used as data source oddrn.
func (m Mapper) DatabaseOddrn() string {
	return m.Generator.Path("databases", m.Database)
}

// SchemaOddrn is the oddrn of a schema. Sources without schemas pass "".
func (m Mapper) SchemaOddrn(schema string) string {
	if schema == "" {
		return m.DatabaseOddrn()
	}
	return m.Generator.Path("databases", m.Database, "schemas", schema)
}

// TableOddrn is the oddrn of a table or view.
func (m Mapper) TableOddrn(t Table) string {
	kind := "tables"
	if t.IsView() {
		kind = "views"
	}
	if t.Schema == "" {
		return m.Generator.Path("databases", m.Database, kind, t.Name)
	}
	return m.Generator.Path("databases", m.Database, "schemas", t.Schema, kind, t.Name)
}

// Table maps t and its columns.
func (m Mapper) Table(t Table) models.DataEntity {
	oddrn := m.TableOddrn(t)

	entityType := models.DataEntityTypeTable
	if t.IsView() {
		entityType = models.DataEntityTypeView
	}

	fields := make([]models.DataSetField, 0, len(t.Columns))
	for _, c := range t.Columns {
		fields = append(fields, models.DataSetField{
			Oddrn: oddrn + "/columns/" + c.Name,
			Name:  c.Name,
			Type: models.DataSetFieldType{
				Type:        m.Types.Lookup(c.DataType),
				LogicalType: c.DataType,
				IsNullable:  c.Nullable,
			},
		})
	}

	return models.DataEntity{
		Oddrn:       oddrn,
		Name:        t.Name,
		Type:        entityType,
		Description: t.Comment,
		Metadata: []models.MetadataExtension{
			models.NewMetadataExtension(m.Source, models.DefinitionDataSet, map[string]interface{}{
				"table_schema": t.Schema,
				"table_type":   t.Type,
			}, true),
		},
		Dataset: &models.DataSet{
			ParentOddrn: m.SchemaOddrn(t.Schema),
			RowsNumber:  t.Rows,
			FieldList:   fields,
		},
	}
}

// Schema maps a schema grouping the given entities.
func (m Mapper) Schema(schema string, members []models.DataEntity) models.DataEntity {
	return models.DataEntity{
		Oddrn:           m.SchemaOddrn(schema),
		Name:            schema,
		Type:            models.DataEntityTypeDatabaseSchema,
		DataEntityGroup: group(members),
	}
}

// DatabaseEntity maps the database grouping the given entities.
func (m Mapper) DatabaseEntity(members []models.DataEntity) models.DataEntity {
	return models.DataEntity{
		Oddrn:           m.DatabaseOddrn(),
		Name:            m.Database,
		Type:            models.DataEntityTypeDatabaseSchema,
		DataEntityGroup: group(members),
	}
}

func group(members []models.DataEntity) *models.DataEntityGroup {
	g := &models.DataEntityGroup{EntitiesList: make([]string, 0, len(members))}
	for _, e := range members {
		g.EntitiesList = append(g.EntitiesList, e.Oddrn)
	}
	return g
}

// GroupColumns attaches columns to their tables, keyed by table name.
func GroupColumns(tables []Table, columns map[string][]Column) []Table {
	for i := range tables {
		tables[i].Columns = columns[tables[i].Name]
	}
	return tables
}
