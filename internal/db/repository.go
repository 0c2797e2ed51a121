package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Page selects a window of a listing. Page numbers start at 1.
type Page struct {
	Page  int64
	Limit int64
}

// Normalize clamps the page number and limit to their allowed ranges.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Skip returns how many documents precede the page.
func (p Page) Skip() int64 {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// UserFilter narrows the admin user list.
type UserFilter struct {
	Role  roles.Role
	Query string
	Page  Page
}

// CourseFilter narrows course listings. Zero fields match everything.
type CourseFilter struct {
	Status       models.CourseStatus
	CategoryID   primitive.ObjectID
	InstructorID primitive.ObjectID
	IDs          []primitive.ObjectID
	Query        string
	Page         Page
}

type AnnouncementFilter struct {
	// All returns every announcement; otherwise general ones plus those for CourseIDs.
	All       bool
	CourseIDs []primitive.ObjectID
	Page      Page
}

type NotificationFilter struct {
	RecipientID primitive.ObjectID
	UnreadOnly  bool
	Page        Page
}

// AuditFilter narrows the audit log by actor or resource.
type AuditFilter struct {
	ActorID  primitive.ObjectID
	Resource string
	Page     Page
}

// OrderFilter narrows orders by buyer or status.
type OrderFilter struct {
	UserID primitive.ObjectID
	Status models.OrderStatus
	Page   Page
}

// UserPatch names the user fields a write touches; nil fields are left as stored.
type UserPatch struct {
	Name        *string
	DisplayName *string
	Password    *string
	FirebaseUID *string
	AvatarURL   *string
	Role        *roles.Role
	Disabled    *bool
	LastLoginAt *time.Time
	UpdatedAt   *time.Time
}

// Apply copies the set fields onto u.
func (p UserPatch) Apply(u *models.User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.FirebaseUID != nil {
		u.FirebaseUID = *p.FirebaseUID
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Disabled != nil {
		u.Disabled = *p.Disabled
	}
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		u.LastLoginAt = &t
	}
	if p.UpdatedAt != nil {
		u.UpdatedAt = *p.UpdatedAt
	}
}

// Users persists accounts.
type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	// ListByRoles returns every enabled user holding one of rs, or everyone when rs is empty.
	ListByRoles(ctx context.Context, rs ...roles.Role) ([]models.User, error)
	// Patch sets only the fields named in p and returns the stored user.
	Patch(ctx context.Context, id primitive.ObjectID, p UserPatch) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// Sessions persists server-side login sessions.
type Sessions interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// Courses persists the course catalog.
type Courses interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error)
	List(ctx context.Context, f CourseFilter) ([]models.Course, int64, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByStatus(ctx context.Context) (map[models.CourseStatus]int64, error)
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
}

type Categories interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Tracks interface {
	Create(ctx context.Context, t *models.CareerTrack) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CareerTrack, error)
	List(ctx context.Context, categoryID primitive.ObjectID) ([]models.CareerTrack, error)
	Update(ctx context.Context, t *models.CareerTrack) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Announcements interface {
	Create(ctx context.Context, a *models.Announcement) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	List(ctx context.Context, f AnnouncementFilter) ([]models.Announcement, int64, error)
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Notifications interface {
	InsertMany(ctx context.Context, ns []*models.Notification) error
	List(ctx context.Context, f NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
	// MarkRead fails with apperr.ErrNotFound unless id belongs to recipientID.
	MarkRead(ctx context.Context, id, recipientID primitive.ObjectID, at time.Time) error
	MarkAllRead(ctx context.Context, recipientID primitive.ObjectID, at time.Time) (int64, error)
}

type AuditLogs interface {
	Insert(ctx context.Context, l *models.AuditLog) error
	List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error)
}

type Carts interface {
	// Get returns an empty cart when the user has none.
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, c *models.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

// Orders persists checkout orders keyed by payment reference.
type Orders interface {
	Create(ctx context.Context, o *models.Order) error
	GetByReference(ctx context.Context, ref string) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	// MarkPaid moves a pending order to paid and reports whether this call did it.
	MarkPaid(ctx context.Context, ref string, at time.Time, gatewayResponse string) (bool, error)
	MarkFailed(ctx context.Context, ref, gatewayResponse string) error
	Revenue(ctx context.Context) (count int64, total int64, err error)
}

// Enrollments persists course access and lesson progress.
type Enrollments interface {
	// Create fails with apperr.ErrConflict when the user is already enrolled.
	Create(ctx context.Context, e *models.Enrollment) error
	Get(ctx context.Context, userID, courseID primitive.ObjectID) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Enrollment, error)
	ListUserIDsByCourse(ctx context.Context, courseID primitive.ObjectID) ([]primitive.ObjectID, error)
	Update(ctx context.Context, e *models.Enrollment) error
	Count(ctx context.Context) (int64, error)
}

// MediaFiles persists metadata for uploaded objects.
type MediaFiles interface {
	Create(ctx context.Context, m *models.Media) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Media, error)
	List(ctx context.Context, page Page) ([]models.Media, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Store bundles every repository the services need.
type Store struct {
	Users         Users
	Sessions      Sessions
	Courses       Courses
	Categories    Categories
	Tracks        Tracks
	Announcements Announcements
	Notifications Notifications
	AuditLogs     AuditLogs
	Carts         Carts
	Orders        Orders
	Enrollments   Enrollments
	Media         MediaFiles
}
