package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	herrors "github.com/matzehuels/halftone/pkg/errors"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "halftone"
	DefaultMongoCollection = "presets"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration // connect and ping timeout, default 10s
}

// MongoStore keeps presets in a MongoDB collection with a unique index on
// name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongoStore connects, verifies the server with a ping and ensures the
// name index exists.
//
// Embedded documents decode as plain maps so that node parameters read back
// from the database build the same graph as parameters read from a file.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, herrors.New(herrors.ErrCodeInvalidInput, "mongo URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, herrors.Wrap(herrors.ErrCodeNetwork, err, "connect to mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, herrors.Wrap(herrors.ErrCodeNetwork, err, "ping mongo")
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create preset indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, name string) (*Preset, error) {
	if err := herrors.ValidateName(name); err != nil {
		return nil, err
	}
	var p Preset
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("find preset: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) Put(ctx context.Context, p *Preset) error {
	if err := p.prepare(); err != nil {
		return err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	p.UpdatedAt = now

	filter, update := upsertPreset(p, now)
	res := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))
	var saved Preset
	if err := res.Decode(&saved); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	p.CreatedAt = saved.CreatedAt
	return nil
}

// upsertPreset builds the filter and update document for Put. created_at
// is only written when the document is inserted.
func upsertPreset(p *Preset, now time.Time) (bson.M, bson.M) {
	set := bson.M{
		"name":       p.Name,
		"graph":      p.Graph,
		"updated_at": now,
	}
	unset := bson.M{}
	if p.Description != "" {
		set["description"] = p.Description
	} else {
		unset["description"] = ""
	}
	if len(p.Tags) > 0 {
		set["tags"] = p.Tags
	} else {
		unset["tags"] = ""
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return bson.M{"name": p.Name}, update
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if err := herrors.ValidateName(name); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(name)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, opts ListOptions) ([]*Preset, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	cur, err := s.coll.Find(ctx, listFilter(opts), findOpts)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	var out []*Preset
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	return out, nil
}

// listFilter translates ListOptions into a query document.
func listFilter(opts ListOptions) bson.M {
	filter := bson.M{}
	if opts.Prefix != "" {
		filter["name"] = bson.M{"$regex": "^" + regexp.QuoteMeta(opts.Prefix)}
	}
	if opts.Tag != "" {
		filter["tags"] = opts.Tag
	}
	return filter
}

// Close disconnects from the server.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
