// internal/store/mongo.go - MongoDB persistence collaborator
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// mongoRecord is the stored document shape
type mongoRecord struct {
	ID          string    `bson:"_id"`
	NameKey     string    `bson:"name_key"`
	ProducerKey string    `bson:"producer_key"`
	VintageKey  int       `bson:"vintage_key"`
	Name        string    `bson:"name"`
	Producer    string    `bson:"producer"`
	Vintage     *int      `bson:"vintage"`
	Varietal    string    `bson:"varietal"`
	Region      string    `bson:"region"`
	Country     string    `bson:"country"`
	Image       string    `bson:"image"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d mongoRecord) record() *Record {
	return &Record{
		ID:        d.ID,
		Name:      d.Name,
		Producer:  d.Producer,
		Vintage:   d.Vintage,
		Varietal:  d.Varietal,
		Region:    d.Region,
		Country:   d.Country,
		Image:     d.Image,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoStore persists records in one MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoStore connects, pings and ensures the unique key index
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.Newf(errors.KindConfig, "open store", "MongoDB connection string is required")
	}
	if database == "" {
		database = "cellar"
	}
	if collection == "" {
		collection = "wines"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(25).
		SetRetryWrites(true)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, errors.New(errors.KindStorage, "open store", fmt.Errorf("failed to connect to MongoDB: %w", err))
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.New(errors.KindStorage, "open store", fmt.Errorf("failed to ping MongoDB: %w", err))
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_key", Value: 1}, {Key: "producer_key", Value: 1}, {Key: "vintage_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("wine_key"),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, errors.New(errors.KindStorage, "open store", fmt.Errorf("failed to create index: %w", err))
	}

	return &MongoStore{client: client, collection: coll, now: time.Now}, nil
}

// FindRecordByKey returns the matching record or nil
func (m *MongoStore) FindRecordByKey(ctx context.Context, name, producer string, vintage *int) (*Record, error) {
	key := keyOf(name, producer, vintage)
	filter := bson.M{"name_key": key.Name, "producer_key": key.Producer, "vintage_key": key.Vintage}

	var doc mongoRecord
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.KindStorage, "find record", err)
	}
	return doc.record(), nil
}

// CreateRecord inserts a new document
func (m *MongoStore) CreateRecord(ctx context.Context, rec types.WineRecord) (*Record, error) {
	r := newRecord(rec, m.now().UTC())
	key := keyOf(rec.Name, rec.Producer, rec.Vintage)

	doc := mongoRecord{
		ID:          r.ID,
		NameKey:     key.Name,
		ProducerKey: key.Producer,
		VintageKey:  key.Vintage,
		Name:        r.Name,
		Producer:    r.Producer,
		Vintage:     r.Vintage,
		Varietal:    r.Varietal,
		Region:      r.Region,
		Country:     r.Country,
		Image:       r.Image,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return nil, errors.New(errors.KindStorage, "create record", err)
	}
	return r, nil
}

// UpdateRecordImage sets the image of one document
func (m *MongoStore) UpdateRecordImage(ctx context.Context, id, url string) error {
	update := bson.M{"$set": bson.M{"image": url, "updated_at": m.now().UTC()}}

	res, err := m.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return errors.New(errors.KindStorage, "update record image", err)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.KindStorage, "update record image", ErrNotFound)
	}
	return nil
}

// Ping checks the connection
func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
