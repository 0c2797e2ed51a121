package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/models"
)

type mongoAnnouncements struct {
	coll *mongo.Collection
}

func (r *mongoAnnouncements) Create(ctx context.Context, a *models.Announcement) error {
	ensureID(&a.ID)
	return insertOne(ctx, r.coll, a, "announcement")
}

func (r *mongoAnnouncements) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	return findOne[models.Announcement](ctx, r.coll, bson.M{"_id": id}, "announcement")
}

func (r *mongoAnnouncements) List(ctx context.Context, f AnnouncementFilter) ([]models.Announcement, int64, error) {
	filter := bson.M{}
	if !f.All {
		or := bson.A{bson.M{"type": models.AnnouncementGeneral}}
		if len(f.CourseIDs) > 0 {
			or = append(or, bson.M{"type": models.AnnouncementCourse, "course_id": bson.M{"$in": f.CourseIDs}})
		}
		filter["$or"] = or
	}
	return findPage[models.Announcement](ctx, r.coll, filter, f.Page, newestFirst, "announcements")
}

func (r *mongoAnnouncements) Update(ctx context.Context, a *models.Announcement) error {
	return replaceByID(ctx, r.coll, a.ID, a, "announcement")
}

func (r *mongoAnnouncements) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id, "announcement")
}

type mongoNotifications struct {
	coll *mongo.Collection
}

func (r *mongoNotifications) InsertMany(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	docs := make([]interface{}, len(ns))
	for i, n := range ns {
		ensureID(&n.ID)
		docs[i] = n
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return mapErr(err, "notifications")
}

func (r *mongoNotifications) List(ctx context.Context, f NotificationFilter) ([]models.Notification, int64, error) {
	filter := bson.M{"recipient_id": f.RecipientID}
	if f.UnreadOnly {
		filter["read"] = false
	}
	return findPage[models.Notification](ctx, r.coll, filter, f.Page, newestFirst, "notifications")
}

func (r *mongoNotifications) CountUnread(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	return count(ctx, r.coll, bson.M{"recipient_id": recipientID, "read": false}, "notifications")
}

func (r *mongoNotifications) MarkRead(ctx context.Context, id, recipientID primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
	)
	if err != nil {
		return mapErr(err, "notification")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(apperr.ErrNotFound, "notification")
	}
	return nil
}

func (r *mongoNotifications) MarkAllRead(ctx context.Context, recipientID primitive.ObjectID, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
	)
	if err != nil {
		return 0, mapErr(err, "notifications")
	}
	return res.ModifiedCount, nil
}

type mongoAuditLogs struct {
	coll *mongo.Collection
}

func (r *mongoAuditLogs) Insert(ctx context.Context, l *models.AuditLog) error {
	ensureID(&l.ID)
	return insertOne(ctx, r.coll, l, "audit log")
}

func (r *mongoAuditLogs) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	filter := bson.M{}
	if !f.ActorID.IsZero() {
		filter["actor_id"] = f.ActorID
	}
	if f.Resource != "" {
		filter["resource"] = f.Resource
	}
	return findPage[models.AuditLog](ctx, r.coll, filter, f.Page, newestFirst, "audit logs")
}
