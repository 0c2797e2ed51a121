package db

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arzan03/coursehub/internal/apperr"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

// mapErr converts driver errors into application errors.
func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(apperr.ErrNotFound, what)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(apperr.ErrConflict, what)
	}
	return errors.Wrap(err, what)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, what string) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, mapErr(err, what)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions, what string) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err, what)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, mapErr(err, what)
	}
	return out, nil
}

// findPage returns one page of matches sorted by sort, plus the total match count.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, page Page, sort bson.D, what string) ([]T, int64, error) {
	page = page.Normalize()
	countCtx, cancel := context.WithTimeout(ctx, opTimeout)
	total, err := coll.CountDocuments(countCtx, filter)
	cancel()
	if err != nil {
		return nil, 0, mapErr(err, what)
	}
	opts := options.Find().SetSort(sort).SetSkip(page.Skip()).SetLimit(page.Limit)
	items, err := findAll[T](ctx, coll, filter, opts, what)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc interface{}, what string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := coll.InsertOne(ctx, doc)
	return mapErr(err, what)
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id interface{}, doc interface{}, what string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapErr(err, what)
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(apperr.ErrNotFound, what)
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id interface{}, what string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, what)
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(apperr.ErrNotFound, what)
	}
	return nil
}

func count(ctx context.Context, coll *mongo.Collection, filter interface{}, what string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := coll.CountDocuments(ctx, filter)
	return n, mapErr(err, what)
}

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

// searchRegex builds a case-insensitive substring match for free-text filters.
func searchRegex(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexpQuote(q), Options: "i"}
}
