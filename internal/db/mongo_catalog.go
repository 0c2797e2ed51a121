package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arzan03/coursehub/internal/models"
)

type mongoCourses struct {
	coll *mongo.Collection
}

func (r *mongoCourses) Create(ctx context.Context, c *models.Course) error {
	ensureID(&c.ID)
	return insertOne(ctx, r.coll, c, "course")
}

func (r *mongoCourses) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	return findOne[models.Course](ctx, r.coll, bson.M{"_id": id}, "course")
}

func (r *mongoCourses) List(ctx context.Context, f CourseFilter) ([]models.Course, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.CategoryID.IsZero() {
		filter["category_id"] = f.CategoryID
	}
	if !f.InstructorID.IsZero() {
		filter["instructor.id"] = f.InstructorID
	}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if f.Query != "" {
		rx := searchRegex(f.Query)
		filter["$or"] = bson.A{bson.M{"title": rx}, bson.M{"description": rx}}
	}
	return findPage[models.Course](ctx, r.coll, filter, f.Page, newestFirst, "courses")
}

func (r *mongoCourses) Update(ctx context.Context, c *models.Course) error {
	return replaceByID(ctx, r.coll, c.ID, c, "course")
}

func (r *mongoCourses) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id, "course")
}

func (r *mongoCourses) CountByStatus(ctx context.Context) (map[models.CourseStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, mapErr(err, "course stats")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.CourseStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapErr(err, "course stats")
	}
	out := make(map[models.CourseStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *mongoCourses) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	return count(ctx, r.coll, bson.M{"category_id": categoryID}, "courses")
}

type mongoCategories struct {
	coll *mongo.Collection
}

func (r *mongoCategories) Create(ctx context.Context, c *models.Category) error {
	ensureID(&c.ID)
	return insertOne(ctx, r.coll, c, "category")
}

func (r *mongoCategories) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return findOne[models.Category](ctx, r.coll, bson.M{"_id": id}, "category")
}

func (r *mongoCategories) List(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Category](ctx, r.coll, bson.M{}, opts, "categories")
}

func (r *mongoCategories) Update(ctx context.Context, c *models.Category) error {
	return replaceByID(ctx, r.coll, c.ID, c, "category")
}

func (r *mongoCategories) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id, "category")
}

type mongoTracks struct {
	coll *mongo.Collection
}

func (r *mongoTracks) Create(ctx context.Context, t *models.CareerTrack) error {
	ensureID(&t.ID)
	return insertOne(ctx, r.coll, t, "track")
}

func (r *mongoTracks) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CareerTrack, error) {
	return findOne[models.CareerTrack](ctx, r.coll, bson.M{"_id": id}, "track")
}

func (r *mongoTracks) List(ctx context.Context, categoryID primitive.ObjectID) ([]models.CareerTrack, error) {
	filter := bson.M{}
	if !categoryID.IsZero() {
		filter["category_id"] = categoryID
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.CareerTrack](ctx, r.coll, filter, opts, "tracks")
}

func (r *mongoTracks) Update(ctx context.Context, t *models.CareerTrack) error {
	return replaceByID(ctx, r.coll, t.ID, t, "track")
}

func (r *mongoTracks) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id, "track")
}
