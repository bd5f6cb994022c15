package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

type MongoLog struct {
	collection *mongo.Collection
	now        func() time.Time
}

// Connect dials MongoDB and returns the audit log plus a disconnect func.
func Connect(ctx context.Context, uri, database, collection string) (*MongoLog, func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return NewMongoLog(client.Database(database).Collection(collection)), client.Disconnect, nil
}

func NewMongoLog(c *mongo.Collection) *MongoLog {
	return &MongoLog{collection: c, now: time.Now}
}

func (m *MongoLog) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now().UTC()
	}
	_, err := m.collection.InsertOne(ctx, e)
	return err
}

// ListByOrder returns the newest entries first.
func (m *MongoLog) ListByOrder(ctx context.Context, orderID string, limit int64) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := m.collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
