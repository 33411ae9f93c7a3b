package mongodb

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
)

// FieldType infers the catalog type of a decoded BSON value.
func FieldType(v interface{}) string {
	switch v.(type) {
	case string, primitive.Symbol:
		return models.FieldTypeString
	case int32, int64:
		return models.FieldTypeInteger
	case float64, primitive.Decimal128:
		return models.FieldTypeNumber
	case bool:
		return models.FieldTypeBoolean
	case primitive.DateTime, primitive.Timestamp, time.Time:
		return models.FieldTypeDateTime
	case primitive.Binary:
		return models.FieldTypeBinary
	case primitive.ObjectID:
		return models.FieldTypeString
	case primitive.A, []interface{}:
		return models.FieldTypeList
	case primitive.M, primitive.D:
		return models.FieldTypeStruct
	default:
		return models.FieldTypeUnknown
	}
}

// Mapper builds entities of one database.
type Mapper struct {
	Generator *oddrn.Generator
	Database  string
}

// DatabaseOddrn is also the data source oddrn.
func (m Mapper) DatabaseOddrn() string {
	return m.Generator.Path("databases", m.Database)
}

// Collection maps c; fields come from its sample document, sorted by name.
func (m Mapper) Collection(c Collection) models.DataEntity {
	oddrn := m.Generator.Path("databases", m.Database, "collections", c.Name)

	names := make([]string, 0, len(c.Sample))
	for k := range c.Sample {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]models.DataSetField, 0, len(names))
	for _, name := range names {
		fields = append(fields, models.DataSetField{
			Oddrn: oddrn + "/columns/" + name,
			Name:  name,
			Type: models.DataSetFieldType{
				Type:       FieldType(c.Sample[name]),
				IsNullable: true,
			},
		})
	}

	return models.DataEntity{
		Oddrn: oddrn,
		Name:  c.Name,
		Type:  models.DataEntityTypeTable,
		Dataset: &models.DataSet{
			ParentOddrn: m.DatabaseOddrn(),
			FieldList:   fields,
		},
	}
}

// DatabaseEntity maps the database grouping the given collections.
func (m Mapper) DatabaseEntity(members []models.DataEntity) models.DataEntity {
	list := make([]string, 0, len(members))
	for _, e := range members {
		list = append(list, e.Oddrn)
	}
	return models.DataEntity{
		Oddrn:           m.DatabaseOddrn(),
		Name:            m.Database,
		Type:            models.DataEntityTypeDatabaseSchema,
		DataEntityGroup: &models.DataEntityGroup{EntitiesList: list},
	}
}
