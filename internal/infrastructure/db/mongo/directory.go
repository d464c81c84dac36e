package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docbook/booking-system/internal/core/ports"
)

// Directory is the MongoDB implementation of ports.RemoteDirectory.
// Documents are keyed by a string _id; every other field is stored as given.
type Directory struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

func NewDirectory(client *mongo.Client, db *mongo.Database, transactions bool) *Directory {
	return &Directory{client: client, db: db, transactions: transactions}
}

func (d *Directory) GetDocument(ctx context.Context, collection, id string) (*ports.Document, error) {
	var raw bson.M
	err := d.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		return nil, classify("get "+collection, err)
	}
	return toDocument(raw), nil
}

// SetDocument upserts the document. With opts.Merge nested maps are merged
// field by field; without it the stored document is replaced.
func (d *Directory) SetDocument(ctx context.Context, collection, id string, fields map[string]any, opts ports.SetOptions) error {
	coll := d.db.Collection(collection)

	var err error
	if opts.Merge {
		set := flatten("", fields, bson.M{})
		if len(set) == 0 {
			return nil
		}
		_, err = coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	} else {
		doc := bson.M{}
		for k, v := range fields {
			doc[k] = v
		}
		doc["_id"] = id
		_, err = coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return classify("set "+collection, err)
	}
	return nil
}

func (d *Directory) AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()

	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id

	if _, err := d.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", classify("add "+collection, err)
	}
	return id, nil
}

func (d *Directory) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := d.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return classify("delete "+collection, err)
	}
	return nil
}

func (d *Directory) Query(ctx context.Context, collection string, filters ...ports.Filter) ([]ports.Document, error) {
	cur, err := d.db.Collection(collection).Find(ctx, filterDoc(filters))
	if err != nil {
		return nil, classify("query "+collection, err)
	}
	defer cur.Close(ctx)

	var out []ports.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		out = append(out, *toDocument(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, classify("query "+collection, err)
	}
	return out, nil
}

// RunInTransaction runs fn inside a MongoDB transaction when enabled, and
// plainly otherwise. The ctx handed to fn carries the session.
func (d *Directory) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !d.transactions {
		return fn(ctx)
	}

	sess, err := d.client.StartSession()
	if err != nil {
		return classify("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping reports whether the server answers.
func (d *Directory) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func filterDoc(filters []ports.Filter) bson.D {
	doc := bson.D{}
	for _, f := range filters {
		doc = append(doc, bson.E{Key: f.Field, Value: f.Value})
	}
	return doc
}

// flatten turns nested maps into dotted $set paths so a merge write leaves
// sibling fields of nested documents untouched. Empty maps are set as is.
func flatten(prefix string, fields map[string]any, out bson.M) bson.M {
	for k, v := range fields {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
	return out
}

func toDocument(raw bson.M) *ports.Document {
	id := ""
	switch v := raw["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalize(v)
	}
	return &ports.Document{ID: id, Fields: fields}
}

// normalize converts driver types into plain Go values.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case time.Time:
		return t.UTC()
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// classify maps driver errors onto the directory sentinels.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, ports.ErrDocumentNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, ports.ErrDocumentConflict, err)
	case transient(err):
		return fmt.Errorf("%s: %w: %w", op, ports.ErrDirectoryUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func transient(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorLabel("RetryableWriteError") {
		return true
	}
	return false
}
