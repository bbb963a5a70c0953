// Package mongo implements the document gateway on MongoDB. Live queries are
// built on change streams, so the deployment must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const idField = "_id"

// Gateway implements interfaces.DocumentGateway on a MongoDB database.
type Gateway struct {
	client *mongo.Client
	db     *mongo.Database
	logger *common.Logger
	now    func() time.Time

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
	nextID  uint64
}

// Connect opens a client for cfg and returns a gateway on cfg.Database.
func Connect(ctx context.Context, logger *common.Logger, cfg *config.MongoConfig) (*Gateway, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("connected to MongoDB")

	return &Gateway{
		client:  client,
		db:      client.Database(cfg.Database),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		cancels: make(map[uint64]context.CancelFunc),
	}, nil
}

// Subscribe delivers an initial snapshot, then re-runs the query after every
// change event on the collection.
func (g *Gateway) Subscribe(q interfaces.Query, onSnapshot interfaces.SnapshotFunc, onError interfaces.ErrorFunc) interfaces.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())

	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.cancels[id] = cancel
	g.mu.Unlock()

	go g.watch(ctx, q, onSnapshot, onError)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			g.mu.Lock()
			delete(g.cancels, id)
			g.mu.Unlock()
		})
	}
}

func (g *Gateway) watch(ctx context.Context, q interfaces.Query, onSnapshot interfaces.SnapshotFunc, onError interfaces.ErrorFunc) {
	report := func(err error) {
		if ctx.Err() != nil || onError == nil {
			return
		}
		onError(err)
	}

	// Open the stream before the first read so no write falls between them.
	stream, err := g.db.Collection(q.Collection).Watch(ctx, watchPipeline(q.Where),
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		report(fmt.Errorf("failed to watch %s: %w", q.Collection, err))
		return
	}
	defer stream.Close(context.Background())

	deliver := func() {
		docs, err := g.Find(ctx, q)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			report(err)
			return
		}
		onSnapshot(docs)
	}

	deliver()
	for stream.Next(ctx) {
		deliver()
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		g.logger.Warn().Str("collection", q.Collection).Str("error", err.Error()).Msg("change stream ended")
		report(err)
	}
}

// Find runs q once.
func (g *Gateway) Find(ctx context.Context, q interfaces.Query) ([]interfaces.Document, error) {
	cursor, err := g.db.Collection(q.Collection).Find(ctx, buildFilter(q.Where), findOptions(q))
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	docs := []interfaces.Document{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("error decoding %s document: %w", q.Collection, err)
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return docs, nil
}

// GetOne returns the document or nil when it does not exist.
func (g *Gateway) GetOne(ctx context.Context, collection, id string) (*interfaces.Document, error) {
	var raw bson.M
	err := g.db.Collection(collection).FindOne(ctx, bson.M{idField: id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching %s/%s: %w", collection, id, err)
	}
	doc := toDocument(raw)
	return &doc, nil
}

// Append inserts a new document under a generated ID.
func (g *Gateway) Append(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	id := uuid.New().String()
	body := resolveFields(fields, g.now())
	body[idField] = id
	if _, err := g.db.Collection(collection).InsertOne(ctx, body); err != nil {
		return "", fmt.Errorf("error appending to %s: %w", collection, err)
	}
	return id, nil
}

// Set upserts fields under id.
func (g *Gateway) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	coll := g.db.Collection(collection)
	body := resolveFields(fields, g.now())

	var err error
	if merge {
		_, err = coll.UpdateOne(ctx, bson.M{idField: id}, bson.M{"$set": body}, options.UpdateOne().SetUpsert(true))
	} else {
		_, err = coll.ReplaceOne(ctx, bson.M{idField: id}, body, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("error writing %s/%s: %w", collection, id, err)
	}
	return nil
}

// BatchUpdate applies fields to every id inside one transaction.
func (g *Gateway) BatchUpdate(ctx context.Context, collection string, ids []string, fields map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	coll := g.db.Collection(collection)
	filter := bson.M{idField: bson.M{"$in": ids}}
	update := bson.M{"$set": resolveFields(fields, g.now())}

	session, err := g.client.StartSession()
	if err != nil {
		return fmt.Errorf("error starting session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, err
		}
		if int(n) != len(uniqueIDs(ids)) {
			return nil, fmt.Errorf("%d of %d ids in %s: %w", n, len(ids), collection, interfaces.ErrNotFound)
		}
		return coll.UpdateMany(ctx, filter, update)
	})
	if err != nil {
		return fmt.Errorf("batch update on %s failed: %w", collection, err)
	}
	return nil
}

// Close cancels every open subscription and disconnects the client.
func (g *Gateway) Close() error {
	g.mu.Lock()
	for id, cancel := range g.cancels {
		cancel()
		delete(g.cancels, id)
	}
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %w", err)
	}
	g.logger.Info().Msg("disconnected from MongoDB")
	return nil
}

func buildFilter(where []interfaces.Filter) bson.D {
	filter := bson.D{}
	for _, f := range where {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	return filter
}

// watchPipeline narrows a change stream to events that can move the result
// set. String-valued filters are scope keys (owner ids) and never change once
// written, so events for other scopes are dropped server side. Flag filters
// are left to the re-query because an update can take a document out of the
// set. Deletes carry no fullDocument and always pass.
func watchPipeline(where []interfaces.Filter) mongo.Pipeline {
	scope := bson.D{}
	for _, f := range where {
		if _, ok := f.Value.(string); ok {
			scope = append(scope, bson.E{Key: "fullDocument." + f.Field, Value: f.Value})
		}
	}
	if len(scope) == 0 {
		return mongo.Pipeline{}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			scope,
			bson.D{{Key: "operationType", Value: bson.D{{Key: "$nin", Value: bson.A{"insert", "update", "replace"}}}}},
		}}}}},
	}
}

func findOptions(q interfaces.Query) *options.FindOptionsBuilder {
	opts := options.Find()
	if q.OrderBy == "" {
		return opts.SetSort(bson.D{{Key: idField, Value: 1}})
	}
	dir := 1
	if q.Descending {
		dir = -1
	}
	return opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: idField, Value: 1}})
}

func resolveFields(fields map[string]interface{}, now time.Time) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if interfaces.IsServerTimestamp(v) {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func uniqueIDs(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// toDocument converts a decoded BSON document into plain Go values.
func toDocument(raw bson.M) interfaces.Document {
	doc := interfaces.Document{Fields: make(map[string]interface{}, len(raw))}
	for k, v := range raw {
		if k == idField {
			doc.ID = fmt.Sprint(v)
			continue
		}
		doc.Fields[k] = plainValue(v)
	}
	return doc
}

func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.DateTime:
		return val.Time().UTC()
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[k] = plainValue(inner)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = plainValue(inner)
		}
		return out
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return v
	}
}
