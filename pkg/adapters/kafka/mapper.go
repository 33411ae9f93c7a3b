package kafka

import (
	"sort"
	"strings"

	"github.com/IBM/sarama"

	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/oddrn"
)

// IsInternal reports whether topic is a broker-managed topic such as
// __consumer_offsets.
func IsInternal(topic string) bool {
	return strings.HasPrefix(topic, "__")
}

// Mapper builds topic entities of one cluster.
type Mapper struct {
	Generator *oddrn.Generator
}

// ClusterOddrn is also the data source oddrn.
func (m Mapper) ClusterOddrn() string {
	return m.Generator.Path()
}

// Topic maps one topic and its configuration.
func (m Mapper) Topic(name string, detail sarama.TopicDetail) models.DataEntity {
	metadata := map[string]interface{}{
		"partitions":         detail.NumPartitions,
		"replication_factor": detail.ReplicationFactor,
	}
	for k, v := range detail.ConfigEntries {
		if v != nil {
			metadata[k] = *v
		}
	}

	return models.DataEntity{
		Oddrn: m.Generator.Path("topics", name),
		Name:  name,
		Type:  models.DataEntityTypeKafkaTopic,
		Metadata: []models.MetadataExtension{
			models.NewMetadataExtension(Type, models.DefinitionDataSet, metadata, false),
		},
		Dataset: &models.DataSet{
			ParentOddrn: m.ClusterOddrn(),
			FieldList:   []models.DataSetField{},
		},
	}
}

// SortedTopics returns the names of topics in order.
func SortedTopics(topics map[string]sarama.TopicDetail) []string {
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
