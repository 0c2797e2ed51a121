package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/models"
)

type mongoCarts struct {
	coll *mongo.Collection
}

func (r *mongoCarts) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	cart, err := findOne[models.Cart](ctx, r.coll, bson.M{"user_id": userID}, "cart")
	if errors.Is(err, apperr.ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, err
}

func (r *mongoCarts) Save(ctx context.Context, c *models.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": c.UserID},
		bson.M{"$set": bson.M{"items": c.Items, "updated_at": c.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	return mapErr(err, "cart")
}

func (r *mongoCarts) Clear(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return mapErr(err, "cart")
}

type mongoOrders struct {
	coll *mongo.Collection
}

func (r *mongoOrders) Create(ctx context.Context, o *models.Order) error {
	ensureID(&o.ID)
	return insertOne(ctx, r.coll, o, "order")
}

func (r *mongoOrders) GetByReference(ctx context.Context, ref string) (*models.Order, error) {
	return findOne[models.Order](ctx, r.coll, bson.M{"reference": ref}, "order")
}

func (r *mongoOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if !f.UserID.IsZero() {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findPage[models.Order](ctx, r.coll, filter, f.Page, newestFirst, "orders")
}

func (r *mongoOrders) MarkPaid(ctx context.Context, ref string, at time.Time, gatewayResponse string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"reference": ref, "status": models.OrderPending},
		bson.M{"$set": bson.M{
			"status":           models.OrderPaid,
			"paid_at":          at,
			"gateway_response": gatewayResponse,
			"updated_at":       at,
		}},
	)
	if err != nil {
		return false, mapErr(err, "order")
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoOrders) MarkFailed(ctx context.Context, ref, gatewayResponse string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"reference": ref, "status": models.OrderPending},
		bson.M{"$set": bson.M{
			"status":           models.OrderFailed,
			"gateway_response": gatewayResponse,
			"updated_at":       time.Now().UTC(),
		}},
	)
	return mapErr(err, "order")
}

func (r *mongoOrders) Revenue(ctx context.Context) (int64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.OrderPaid}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "count": bson.M{"$sum": 1}, "total": bson.M{"$sum": "$total"}}}},
	})
	if err != nil {
		return 0, 0, mapErr(err, "revenue")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count int64 `bson:"count"`
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, mapErr(err, "revenue")
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Count, rows[0].Total, nil
}

type mongoEnrollments struct {
	coll *mongo.Collection
}

func (r *mongoEnrollments) Create(ctx context.Context, e *models.Enrollment) error {
	ensureID(&e.ID)
	return insertOne(ctx, r.coll, e, "enrollment")
}

func (r *mongoEnrollments) Get(ctx context.Context, userID, courseID primitive.ObjectID) (*models.Enrollment, error) {
	return findOne[models.Enrollment](ctx, r.coll, bson.M{"user_id": userID, "course_id": courseID}, "enrollment")
}

func (r *mongoEnrollments) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Enrollment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "enrolled_at", Value: -1}})
	return findAll[models.Enrollment](ctx, r.coll, bson.M{"user_id": userID}, opts, "enrollments")
}

func (r *mongoEnrollments) ListUserIDsByCourse(ctx context.Context, courseID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"user_id": 1})
	rows, err := findAll[models.Enrollment](ctx, r.coll, bson.M{"course_id": courseID, "status": bson.M{"$ne": models.EnrollmentRevoked}}, opts, "enrollments")
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}
	return ids, nil
}

func (r *mongoEnrollments) Update(ctx context.Context, e *models.Enrollment) error {
	return replaceByID(ctx, r.coll, e.ID, e, "enrollment")
}

func (r *mongoEnrollments) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.coll, bson.M{}, "enrollments")
}

type mongoMedia struct {
	coll *mongo.Collection
}

func (r *mongoMedia) Create(ctx context.Context, m *models.Media) error {
	ensureID(&m.ID)
	return insertOne(ctx, r.coll, m, "media")
}

func (r *mongoMedia) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Media, error) {
	return findOne[models.Media](ctx, r.coll, bson.M{"_id": id}, "media")
}

func (r *mongoMedia) List(ctx context.Context, page Page) ([]models.Media, int64, error) {
	return findPage[models.Media](ctx, r.coll, bson.M{}, page, newestFirst, "media")
}

func (r *mongoMedia) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id, "media")
}
