package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Collection is one collection with a sample document, empty when the
// collection has none.
type Collection struct {
	Name   string
	Sample bson.M
}

// Source lists the collections of one database.
type Source interface {
	Collections(ctx context.Context) ([]Collection, error)
	Close(ctx context.Context) error
}

// Opener connects a Source for p.
type Opener func(ctx context.Context, p *Plugin) (Source, error)

type mongoSource struct {
	client   *mongo.Client
	database *mongo.Database
}

// Open connects to the database of p.
func Open(ctx context.Context, p *Plugin) (Source, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(p.URI()))
	if err != nil {
		return nil, errors.NewDataSourceError(errors.ErrorTypeConnection, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.NewDataSourceError(errors.ErrorTypeConnection, err)
	}
	return &mongoSource{client: client, database: client.Database(p.Database)}, nil
}

func (s *mongoSource) Collections(ctx context.Context) ([]Collection, error) {
	names, err := s.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to list collections")
	}

	out := make([]Collection, 0, len(names))
	for _, name := range names {
		c := Collection{Name: name}
		err := s.database.Collection(name).FindOne(ctx, bson.D{}).Decode(&c.Sample)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to sample collection "+name)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *mongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
