package s3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
	"github.com/ajitpratap0/oddcollector/pkg/models"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// fakeS3 serves pages in order, following continuation tokens.
type fakeS3 struct {
	pages  [][]types.Object
	err    error
	inputs []*awss3.ListObjectsV2Input
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	i := 0
	if in.ContinuationToken != nil {
		i = int(aws.ToString(in.ContinuationToken)[0] - '0')
	}
	out := &awss3.ListObjectsV2Output{Contents: f.pages[i]}
	if i+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + i + 1)))
	}
	return out, nil
}

func object(key string, size int64) types.Object {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		ETag:         aws.String(`"abc"`),
		StorageClass: types.ObjectStorageClassStandard,
		LastModified: &modified,
	}
}

func testPlugin() *Plugin {
	return &Plugin{
		Base:           plugin.Base{Type: Type, Name: "lake"},
		DatasetConfig:  DatasetConfig{Bucket: "lake", Prefix: "raw/"},
		FilenameFilter: filter.MustNew([]string{`\.csv$`, `\.parquet$`}, []string{"^_"}, true),
	}
}

func TestGetDataEntityList(t *testing.T) {
	client := &fakeS3{pages: [][]types.Object{
		{object("raw/", 0), object("raw/orders.csv", 10), object("raw/_SUCCESS", 0)},
		{object("raw/events.PARQUET", 20), object("raw/notes.txt", 5)},
	}}
	a := NewWithOpener(testPlugin(), func(context.Context, *Plugin) (awss3.ListObjectsV2APIClient, error) {
		return client, nil
	}, zaptest.NewLogger(t))

	var shaped adapter.Adapter = a
	_, ok := shaped.(adapter.AsyncAdapter)
	require.True(t, ok)
	assert.Equal(t, "//s3/cloud/aws/buckets/lake", a.GetDataSourceOddrn())

	lists, err := a.GetDataEntityList(context.Background()).Await(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)

	require.Len(t, client.inputs, 2)
	assert.Equal(t, "raw/", aws.ToString(client.inputs[0].Prefix))
	assert.Equal(t, "lake", aws.ToString(client.inputs[0].Bucket))

	items := lists[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, "orders.csv", items[0].Name)
	assert.Equal(t, "events.PARQUET", items[1].Name)
	assert.Equal(t, models.DataEntityTypeFile, items[0].Type)
	assert.Equal(t, int64(10), items[0].Metadata[0].Metadata["size"])
	assert.Equal(t, "abc", items[0].Metadata[0].Metadata["etag"])
	require.NotNil(t, items[0].UpdatedAt)

	bucket := items[2]
	assert.Equal(t, a.GetDataSourceOddrn(), bucket.Oddrn)
	assert.Equal(t, []string{items[0].Oddrn, items[1].Oddrn}, bucket.DataEntityGroup.EntitiesList)
}

func TestGetDataEntityListError(t *testing.T) {
	client := &fakeS3{err: errors.New("AccessDenied")}
	a := NewWithOpener(testPlugin(), func(context.Context, *Plugin) (awss3.ListObjectsV2APIClient, error) {
		return client, nil
	}, zaptest.NewLogger(t))

	_, err := a.GetDataEntityList(context.Background()).Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "a.csv", Filename("x/y/a.csv"))
	assert.Equal(t, "a.csv", Filename("a.csv"))
	assert.Equal(t, "", Filename("x/y/"))
	assert.Equal(t, "", Filename(""))
}

func TestValidate(t *testing.T) {
	p := &Plugin{
		Base:           plugin.Base{Type: Type, Name: "lake"},
		DatasetConfig:  DatasetConfig{Bucket: "lake/raw"},
		AWSAccessKeyID: "AKIA",
	}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not contain a path")
	assert.Contains(t, err.Error(), "go together")
}
