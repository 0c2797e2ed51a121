package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection         = "users"
	SessionsCollection      = "sessions"
	CoursesCollection       = "courses"
	CategoriesCollection    = "categories"
	TracksCollection        = "tracks"
	AnnouncementsCollection = "announcements"
	NotificationsCollection = "notifications"
	AuditLogsCollection     = "audit_logs"
	CartsCollection         = "carts"
	OrdersCollection        = "orders"
	EnrollmentsCollection   = "enrollments"
	MediaCollection         = "media"
)

// opTimeout bounds every single database call.
const opTimeout = 10 * time.Second

// ConnectMongoDB opens a client and verifies the connection with a ping.
func ConnectMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}
	return client, nil
}

// NewMongoStore builds every repository on top of database.
func NewMongoStore(database *mongo.Database) *Store {
	return &Store{
		Users:         &mongoUsers{coll: database.Collection(UsersCollection)},
		Sessions:      &mongoSessions{coll: database.Collection(SessionsCollection)},
		Courses:       &mongoCourses{coll: database.Collection(CoursesCollection)},
		Categories:    &mongoCategories{coll: database.Collection(CategoriesCollection)},
		Tracks:        &mongoTracks{coll: database.Collection(TracksCollection)},
		Announcements: &mongoAnnouncements{coll: database.Collection(AnnouncementsCollection)},
		Notifications: &mongoNotifications{coll: database.Collection(NotificationsCollection)},
		AuditLogs:     &mongoAuditLogs{coll: database.Collection(AuditLogsCollection)},
		Carts:         &mongoCarts{coll: database.Collection(CartsCollection)},
		Orders:        &mongoOrders{coll: database.Collection(OrdersCollection)},
		Enrollments:   &mongoEnrollments{coll: database.Collection(EnrollmentsCollection)},
		Media:         &mongoMedia{coll: database.Collection(MediaCollection)},
	}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, models := range indexModels() {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes on %s", name)
		}
	}
	return nil
}

// indexModels lists the indexes per collection. Free-text filters use
// case-insensitive regexes, so courses carry no text index.
func indexModels() map[string][]mongo.IndexModel {
	unique := options.Index().SetUnique(true)
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "firebase_uid", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		CoursesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
			{Keys: bson.D{{Key: "instructor.id", Value: 1}}},
		},
		CategoriesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		AuditLogsCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "actor_id", Value: 1}}},
		},
		CartsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		EnrollmentsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "course_id", Value: 1}}},
		},
	}
}
