package db

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

func regexpQuote(s string) string {
	return regexp.QuoteMeta(strings.TrimSpace(s))
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	ensureID(&u.ID)
	return insertOne(ctx, r.coll, u, "user")
}

func (r *mongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"_id": id}, "user")
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"email": strings.ToLower(email)}, "user")
}

func (r *mongoUsers) GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"firebase_uid": uid}, "user")
}

func (r *mongoUsers) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role.Valid() {
		// Equality also matches legacy documents storing the role as an array.
		filter["role"] = string(f.Role)
	}
	if f.Query != "" {
		rx := searchRegex(f.Query)
		filter["$or"] = bson.A{bson.M{"email": rx}, bson.M{"name": rx}, bson.M{"display_name": rx}}
	}
	return findPage[models.User](ctx, r.coll, filter, f.Page, newestFirst, "users")
}

func (r *mongoUsers) ListByRoles(ctx context.Context, rs ...roles.Role) ([]models.User, error) {
	filter := bson.M{"disabled": bson.M{"$ne": true}}
	if len(rs) > 0 {
		names := make(bson.A, 0, len(rs))
		for _, x := range rs {
			names = append(names, string(x))
		}
		// $in matches both string roles and arrays containing one of names.
		filter["role"] = bson.M{"$in": names}
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})
	return findAll[models.User](ctx, r.coll, filter, opts, "users")
}

func (r *mongoUsers) Patch(ctx context.Context, id primitive.ObjectID, p UserPatch) (*models.User, error) {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.DisplayName != nil {
		set["display_name"] = *p.DisplayName
	}
	if p.Password != nil {
		set["password"] = *p.Password
	}
	if p.FirebaseUID != nil {
		set["firebase_uid"] = *p.FirebaseUID
	}
	if p.AvatarURL != nil {
		set["avatar_url"] = *p.AvatarURL
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.Disabled != nil {
		set["disabled"] = *p.Disabled
	}
	if p.LastLoginAt != nil {
		set["last_login_at"] = *p.LastLoginAt
	}
	if p.UpdatedAt != nil {
		set["updated_at"] = *p.UpdatedAt
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var out models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out); err != nil {
		return nil, mapErr(err, "user")
	}
	return &out, nil
}

func (r *mongoUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, id, "user")
}

func (r *mongoUsers) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.coll, bson.M{}, "users")
}

type mongoSessions struct {
	coll *mongo.Collection
}

func (r *mongoSessions) Create(ctx context.Context, s *models.Session) error {
	return insertOne(ctx, r.coll, s, "session")
}

func (r *mongoSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	return findOne[models.Session](ctx, r.coll, bson.M{"_id": id}, "session")
}

func (r *mongoSessions) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id, "session")
}

func (r *mongoSessions) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	return mapErr(err, "sessions")
}
