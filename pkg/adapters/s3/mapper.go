package s3

import (
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
)

// Mapper builds entities of one bucket.
type Mapper struct {
	Generator *oddrn.Generator
	Bucket    string
}

// BucketOddrn is also the data source oddrn.
func (m Mapper) BucketOddrn() string {
	return m.Generator.Path("buckets", m.Bucket)
}

// Filename is the last path element of key; "" for folder markers.
func Filename(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return ""
	}
	return path.Base(key)
}

// Object maps one listed object to a file entity.
func (m Mapper) Object(obj types.Object) models.DataEntity {
	key := aws.ToString(obj.Key)
	e := models.DataEntity{
		Oddrn: m.Generator.Path("buckets", m.Bucket, "keys", key),
		Name:  Filename(key),
		Type:  models.DataEntityTypeFile,
		Metadata: []models.MetadataExtension{
			models.NewMetadataExtension(Type, models.DefinitionDataSet, map[string]interface{}{
				"path":          m.Bucket + "/" + key,
				"size":          aws.ToInt64(obj.Size),
				"etag":          strings.Trim(aws.ToString(obj.ETag), `"`),
				"storage_class": string(obj.StorageClass),
			}, false),
		},
		Dataset: &models.DataSet{
			ParentOddrn: m.BucketOddrn(),
			FieldList:   []models.DataSetField{},
		},
	}
	if obj.LastModified != nil {
		modified := *obj.LastModified
		e.UpdatedAt = &modified
	}
	return e
}

// BucketEntity maps the bucket grouping the given files.
func (m Mapper) BucketEntity(files []models.DataEntity) models.DataEntity {
	list := make([]string, 0, len(files))
	for _, f := range files {
		list = append(list, f.Oddrn)
	}
	return models.DataEntity{
		Oddrn:           m.BucketOddrn(),
		Name:            m.Bucket,
		Type:            models.DataEntityTypeDAG,
		DataEntityGroup: &models.DataEntityGroup{EntitiesList: list},
	}
}
