package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

type fakeAdmin struct {
	topics map[string]sarama.TopicDetail
	err    error
	closed bool
}

func (f *fakeAdmin) ListTopics() (map[string]sarama.TopicDetail, error) { return f.topics, f.err }

func (f *fakeAdmin) Close() error {
	f.closed = true
	return nil
}

func testPlugin() *Plugin {
	return &Plugin{
		Base:         plugin.Base{Type: Type, Name: "events"},
		Brokers:      []string{"broker-1:9092", "broker-2:9092"},
		TopicsFilter: filter.MustNew([]string{"^orders"}, []string{"_dlq$"}, false),
	}
}

func collect(t *testing.T, a *Adapter) ([]*models.DataEntityList, error) {
	t.Helper()
	var lists []*models.DataEntityList
	for list, err := range a.GetDataEntityList(context.Background()) {
		if err != nil {
			return lists, err
		}
		lists = append(lists, list)
	}
	return lists, nil
}

func TestGetDataEntityList(t *testing.T) {
	retention := "604800000"
	admin := &fakeAdmin{topics: map[string]sarama.TopicDetail{
		"orders.created":     {NumPartitions: 6, ReplicationFactor: 3, ConfigEntries: map[string]*string{"retention.ms": &retention, "cleanup.policy": nil}},
		"orders.created_dlq": {NumPartitions: 1, ReplicationFactor: 3},
		"orders.archived":    {NumPartitions: 1, ReplicationFactor: 1},
		"payments":           {NumPartitions: 3, ReplicationFactor: 3},
		"__consumer_offsets": {NumPartitions: 50, ReplicationFactor: 3},
	}}
	a := NewWithOpener(testPlugin(), func(*Plugin) (Admin, error) { return admin, nil }, zaptest.NewLogger(t))

	var shaped adapter.Adapter = a
	_, ok := shaped.(adapter.SyncAdapter)
	require.True(t, ok)
	assert.Equal(t, "//kafka/host/broker-1:9092", a.GetDataSourceOddrn())

	lists, err := collect(t, a)
	require.NoError(t, err)
	require.Len(t, lists, 1)

	items := lists[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, "orders.archived", items[0].Name)
	assert.Equal(t, "orders.created", items[1].Name)

	created := items[1]
	assert.Equal(t, "//kafka/host/broker-1:9092/topics/orders.created", created.Oddrn)
	assert.Equal(t, models.DataEntityTypeKafkaTopic, created.Type)
	require.Len(t, created.Metadata, 1)
	assert.Equal(t, map[string]interface{}{
		"partitions":         int32(6),
		"replication_factor": int16(3),
		"retention.ms":       "604800000",
	}, created.Metadata[0].Metadata)
	assert.True(t, admin.closed)
}

func TestInternalTopics(t *testing.T) {
	admin := &fakeAdmin{topics: map[string]sarama.TopicDetail{"__consumer_offsets": {}, "orders": {}}}
	p := testPlugin()
	p.TopicsFilter = nil
	p.IncludeInternal = true
	a := NewWithOpener(p, func(*Plugin) (Admin, error) { return admin, nil }, zaptest.NewLogger(t))

	lists, err := collect(t, a)
	require.NoError(t, err)
	assert.Equal(t, 2, lists[0].Len())
}

func TestListTopicsError(t *testing.T) {
	admin := &fakeAdmin{err: errors.New("broker unavailable")}
	a := NewWithOpener(testPlugin(), func(*Plugin) (Admin, error) { return admin, nil }, zaptest.NewLogger(t))

	_, err := collect(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.True(t, admin.closed)
}

func TestSaramaConfig(t *testing.T) {
	p := testPlugin()
	p.SecurityProtocol = ProtocolSASLSSL
	p.SASLUsername, p.SASLPassword = "svc", "secret"
	p.ClientID = "odd"

	cfg := SaramaConfig(p)
	assert.True(t, cfg.Net.TLS.Enable)
	assert.True(t, cfg.Net.SASL.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypePlaintext), cfg.Net.SASL.Mechanism)
	assert.Equal(t, "odd", cfg.ClientID)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	p := &Plugin{Base: plugin.Base{Type: Type, Name: "k"}, SecurityProtocol: ProtocolSASLPlaintext}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one broker")
	assert.Contains(t, err.Error(), "sasl_username")
}

func TestDecodeBrokersFromString(t *testing.T) {
	p, err := plugin.Default().Decode(map[string]interface{}{
		"type":    Type,
		"name":    "k",
		"brokers": "a:9092,b:9092",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, p.(*Plugin).Brokers)
}
