// Package mongo stores attribute columns in MongoDB, one document per
// column upserted by name.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/vgadepth/pkg/attr"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/persist"
)

// Defaults used by Connect.
const (
	DefaultDatabase   = "vgadepth"
	DefaultCollection = "attribute_columns"
)

// ErrColumnNotFound is returned by ReadColumn for an unknown name.
var ErrColumnNotFound = errors.New("mongo: column not found")

type columnDoc struct {
	Name      string     `bson:"name"`
	Cols      int        `bson:"cols"`
	Rows      int        `bson:"rows"`
	Spacing   float64    `bson:"spacing"`
	Min       [2]float64 `bson:"min"`
	Max       [2]float64 `bson:"max"`
	Defined   int        `bson:"defined"`
	Values    []*float64 `bson:"values"`
	WrittenAt time.Time  `bson:"written_at"`
}

func toDoc(col persist.Column, now time.Time) (columnDoc, error) {
	if col.Name == "" || col.Cols <= 0 || col.Rows <= 0 || len(col.Values) != col.Cols*col.Rows {
		return columnDoc{}, fmt.Errorf("mongo: malformed column %q", col.Name)
	}
	return columnDoc{
		Name:      col.Name,
		Cols:      col.Cols,
		Rows:      col.Rows,
		Spacing:   col.Spacing,
		Min:       [2]float64{col.Region.Min.X, col.Region.Min.Y},
		Max:       [2]float64{col.Region.Max.X, col.Region.Max.Y},
		Defined:   col.Defined(),
		Values:    col.Nullable(),
		WrittenAt: now.UTC(),
	}, nil
}

func (d columnDoc) column() persist.Column {
	col := persist.Column{
		Name:    d.Name,
		Cols:    d.Cols,
		Rows:    d.Rows,
		Spacing: d.Spacing,
		Region: grid.Region{
			Min: grid.Point{X: d.Min[0], Y: d.Min[1]},
			Max: grid.Point{X: d.Max[0], Y: d.Max[1]},
		},
		Values: make([]float64, len(d.Values)),
	}
	for i, v := range d.Values {
		if v == nil {
			col.Values[i] = attr.Undefined
		} else {
			col.Values[i] = *v
		}
	}
	return col
}

// Store is a column sink backed by a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Connect dials uri and returns a store on the default database and
// collection. Close disconnects the client.
func Connect(ctx context.Context, uri string) (*Store, error) {
	return ConnectCollection(ctx, uri, DefaultDatabase, DefaultCollection)
}

// ConnectCollection is Connect with an explicit database and collection.
// Empty names fall back to the defaults.
func ConnectCollection(ctx context.Context, uri, database, collection string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return New(client, database, collection), nil
}

// New returns a store on an existing client.
func New(client *mongo.Client, database, collection string) *Store {
	return &Store{
		client: client,
		coll:   client.Database(database).Collection(collection),
		now:    time.Now,
	}
}

// EnsureIndexes creates the unique index on name.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WriteColumn upserts col by name.
func (s *Store) WriteColumn(ctx context.Context, col persist.Column) error {
	doc, err := toDoc(col, s.now())
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"name": col.Name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %q: %w", col.Name, err)
	}
	return nil
}

// ReadColumn loads a column by name.
func (s *Store) ReadColumn(ctx context.Context, name string) (persist.Column, error) {
	var doc columnDoc
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return persist.Column{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if err != nil {
		return persist.Column{}, err
	}
	return doc.column(), nil
}

// ListColumns returns the stored column names in name order.
func (s *Store) ListColumns(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: "name", Value: 1}}).
		SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names, nil
}

var _ persist.Sink = (*Store)(nil)
