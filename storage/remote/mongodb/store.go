package mongodb

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
)

type (
	// Store adapts a hosted MongoDB database to collection.RemoteStore.
	// Each Record payload is stored as a nested "data" document so equality
	// filters and ordering can run server side ("data.<field>").
	Store struct {
		client *mongo.Client
		db     *mongo.Database
		log    core.Logger
	}

	document struct {
		Key  string `bson:"_id"`
		Data bson.D `bson:"data"`
	}
)

var _ collection.RemoteStore = (*Store)(nil)

func Open(ctx context.Context, conf *core.Config, log core.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, "mongodb: connecting")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "mongodb: pinging")
	}
	return &Store{
		client: client,
		db:     client.Database(conf.MongoDatabase),
		log:    log,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) LoadAll(ctx context.Context, name string) ([]collection.Document, error) {
	return s.find(ctx, name, bson.D{}, nil)
}

func (s *Store) Put(ctx context.Context, name string, doc collection.Document) error {
	var data bson.D
	if err := bson.UnmarshalExtJSON(doc.Data, false, &data); err != nil {
		return errors.Wrap(err, "mongodb: encoding document")
	}
	_, err := s.db.Collection(name).ReplaceOne(
		ctx,
		bson.D{{Key: "_id", Value: doc.Key}},
		document{Key: doc.Key, Data: data},
		options.Replace().SetUpsert(true),
	)
	return errors.Wrap(err, "mongodb: upserting document")
}

func (s *Store) Delete(ctx context.Context, name, key string) error {
	_, err := s.db.Collection(name).DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	return errors.Wrap(err, "mongodb: deleting document")
}

// Subscribe opens a change stream on the collection. Every change event
// triggers a re-fetch of the full matching document set; incremental diffing
// is deliberately not attempted (snapshot replacement semantics).
func (s *Store) Subscribe(ctx context.Context, name string, filter collection.Filter, order collection.Order) (collection.Subscription, error) {
	cs, err := s.db.Collection(name).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, errors.Wrap(err, "mongodb: opening change stream")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		cancel: cancel,
		ch:     make(chan []collection.Document, 8),
	}
	go sub.run(subCtx, s, cs, name, filter, order)
	return sub, nil
}

func (s *Store) find(ctx context.Context, name string, query bson.D, findOpts *options.FindOptions) ([]collection.Document, error) {
	opts := make([]*options.FindOptions, 0, 1)
	if findOpts != nil {
		opts = append(opts, findOpts)
	}
	cur, err := s.db.Collection(name).Find(ctx, query, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb: fetching documents")
	}
	defer cur.Close(ctx)

	var docs []collection.Document
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			s.log.Debug("mongodb: skipping undecodable document", name, err)
			continue
		}
		raw, err := bson.MarshalExtJSON(doc.Data, false, false)
		if err != nil {
			s.log.Debug("mongodb: skipping unencodable document", name, doc.Key, err)
			continue
		}
		docs = append(docs, collection.Document{Key: doc.Key, Data: json.RawMessage(raw)})
	}
	return docs, errors.Wrap(cur.Err(), "mongodb: iterating documents")
}

type subscription struct {
	cancel    context.CancelFunc
	ch        chan []collection.Document
	closeOnce sync.Once
}

func (sub *subscription) run(
	ctx context.Context,
	s *Store,
	cs *mongo.ChangeStream,
	name string,
	filter collection.Filter,
	order collection.Order,
) {
	defer sub.closeOnce.Do(func() { close(sub.ch) })
	defer cs.Close(context.Background())

	query := bson.D{}
	if filter.Field != "" {
		query = bson.D{{Key: "data." + filter.Field, Value: filter.Value}}
	}
	findOpts := options.Find()
	if order.Field != "" {
		dir := 1
		if order.Descending {
			dir = -1
		}
		findOpts = findOpts.SetSort(bson.D{{Key: "data." + order.Field, Value: dir}})
	}

	push := func() {
		docs, err := s.find(ctx, name, query, findOpts)
		if err != nil {
			s.log.Warn("mongodb: refreshing subscription snapshot failed", name, err)
			return
		}
		select {
		case sub.ch <- docs:
		case <-ctx.Done():
		}
	}

	push() // initial snapshot
	for cs.Next(ctx) {
		push()
	}
}

func (sub *subscription) Updates() <-chan []collection.Document {
	return sub.ch
}

func (sub *subscription) Close() error {
	sub.cancel()
	return nil
}
