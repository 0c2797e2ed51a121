package memory

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

type objID = primitive.ObjectID

// NewStore returns an empty in-memory store.
func NewStore() *db.Store {
	return &db.Store{
		Users:         &users{t: newTable[objID, models.User]("user")},
		Sessions:      &sessions{t: newTable[string, models.Session]("session")},
		Courses:       &courses{t: newTable[objID, models.Course]("course")},
		Categories:    &categories{t: newTable[objID, models.Category]("category")},
		Tracks:        &tracks{t: newTable[objID, models.CareerTrack]("track")},
		Announcements: &announcements{t: newTable[objID, models.Announcement]("announcement")},
		Notifications: &notifications{t: newTable[objID, models.Notification]("notification")},
		AuditLogs:     &auditLogs{t: newTable[objID, models.AuditLog]("audit log")},
		Carts:         &carts{t: newTable[objID, models.Cart]("cart")},
		Orders:        &orders{t: newTable[string, models.Order]("order")},
		Enrollments:   &enrollments{t: newTable[objID, models.Enrollment]("enrollment")},
		Media:         &media{t: newTable[objID, models.Media]("media")},
	}
}

func newID(id *objID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func contains(haystack, q string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(q)))
}

type users struct{ t *table[objID, models.User] }

func (r *users) Create(_ context.Context, u *models.User) error {
	newID(&u.ID)
	return r.t.insertUnique(u.ID, *u, func(a, b models.User) bool {
		return strings.EqualFold(a.Email, b.Email) || (a.FirebaseUID != "" && a.FirebaseUID == b.FirebaseUID)
	})
}

func (r *users) GetByID(_ context.Context, id objID) (*models.User, error) {
	u, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, err := r.t.first(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *users) GetByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	u, err := r.t.first(func(u models.User) bool { return uid != "" && u.FirebaseUID == uid })
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *users) List(_ context.Context, f db.UserFilter) ([]models.User, int64, error) {
	items, total := r.t.page(func(u models.User) bool {
		if f.Role.Valid() && u.Role != f.Role {
			return false
		}
		if f.Query != "" && !contains(u.Email, f.Query) && !contains(u.Name, f.Query) && !contains(u.DisplayName, f.Query) {
			return false
		}
		return true
	}, func(a, b models.User) bool { return a.CreatedAt.After(b.CreatedAt) }, f.Page)
	return items, total, nil
}

func (r *users) ListByRoles(_ context.Context, rs ...roles.Role) ([]models.User, error) {
	return r.t.filter(func(u models.User) bool {
		if u.Disabled {
			return false
		}
		if len(rs) == 0 {
			return true
		}
		for _, x := range rs {
			if u.Role == x {
				return true
			}
		}
		return false
	}, func(a, b models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (r *users) Patch(_ context.Context, id objID, p db.UserPatch) (*models.User, error) {
	u, err := r.t.modify(id, p.Apply)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *users) Delete(_ context.Context, id objID) error {
	return r.t.remove(id)
}

func (r *users) Count(_ context.Context) (int64, error) {
	return r.t.count(nil), nil
}

type sessions struct{ t *table[string, models.Session] }

func (r *sessions) Create(_ context.Context, s *models.Session) error {
	return r.t.insert(s.ID, *s)
}

func (r *sessions) Get(_ context.Context, id string) (*models.Session, error) {
	s, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessions) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

func (r *sessions) DeleteByUser(_ context.Context, userID objID) error {
	r.t.removeWhere(func(s models.Session) bool { return s.UserID == userID })
	return nil
}

type courses struct{ t *table[objID, models.Course] }

func (r *courses) Create(_ context.Context, c *models.Course) error {
	newID(&c.ID)
	return r.t.insert(c.ID, *c)
}

func (r *courses) GetByID(_ context.Context, id objID) (*models.Course, error) {
	c, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courses) List(_ context.Context, f db.CourseFilter) ([]models.Course, int64, error) {
	var ids map[objID]bool
	if f.IDs != nil {
		ids = make(map[objID]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	items, total := r.t.page(func(c models.Course) bool {
		switch {
		case f.Status != "" && c.Status != f.Status:
			return false
		case !f.CategoryID.IsZero() && c.CategoryID != f.CategoryID:
			return false
		case !f.InstructorID.IsZero() && c.Instructor.ID != f.InstructorID:
			return false
		case ids != nil && !ids[c.ID]:
			return false
		case f.Query != "" && !contains(c.Title, f.Query) && !contains(c.Description, f.Query):
			return false
		}
		return true
	}, func(a, b models.Course) bool { return a.CreatedAt.After(b.CreatedAt) }, f.Page)
	return items, total, nil
}

func (r *courses) Update(_ context.Context, c *models.Course) error {
	return r.t.replace(c.ID, *c)
}

func (r *courses) Delete(_ context.Context, id objID) error {
	return r.t.remove(id)
}

func (r *courses) CountByStatus(_ context.Context) (map[models.CourseStatus]int64, error) {
	out := map[models.CourseStatus]int64{}
	for _, c := range r.t.filter(nil, nil) {
		out[c.Status]++
	}
	return out, nil
}

func (r *courses) CountByCategory(_ context.Context, categoryID objID) (int64, error) {
	return r.t.count(func(c models.Course) bool { return c.CategoryID == categoryID }), nil
}

type categories struct{ t *table[objID, models.Category] }

func (r *categories) Create(_ context.Context, c *models.Category) error {
	newID(&c.ID)
	return r.t.insertUnique(c.ID, *c, func(a, b models.Category) bool { return a.Slug == b.Slug })
}

func (r *categories) GetByID(_ context.Context, id objID) (*models.Category, error) {
	c, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categories) List(_ context.Context) ([]models.Category, error) {
	return r.t.filter(nil, func(a, b models.Category) bool { return a.Name < b.Name }), nil
}

func (r *categories) Update(_ context.Context, c *models.Category) error {
	clash := r.t.count(func(x models.Category) bool { return x.ID != c.ID && x.Slug == c.Slug })
	if clash > 0 {
		return errors.Wrap(apperr.ErrConflict, "category")
	}
	return r.t.replace(c.ID, *c)
}

func (r *categories) Delete(_ context.Context, id objID) error {
	return r.t.remove(id)
}

type tracks struct{ t *table[objID, models.CareerTrack] }

func (r *tracks) Create(_ context.Context, t *models.CareerTrack) error {
	newID(&t.ID)
	return r.t.insert(t.ID, *t)
}

func (r *tracks) GetByID(_ context.Context, id objID) (*models.CareerTrack, error) {
	t, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tracks) List(_ context.Context, categoryID objID) ([]models.CareerTrack, error) {
	return r.t.filter(func(t models.CareerTrack) bool {
		return categoryID.IsZero() || t.CategoryID == categoryID
	}, func(a, b models.CareerTrack) bool { return a.Name < b.Name }), nil
}

func (r *tracks) Update(_ context.Context, t *models.CareerTrack) error {
	return r.t.replace(t.ID, *t)
}

func (r *tracks) Delete(_ context.Context, id objID) error {
	return r.t.remove(id)
}

type announcements struct{ t *table[objID, models.Announcement] }

func (r *announcements) Create(_ context.Context, a *models.Announcement) error {
	newID(&a.ID)
	return r.t.insert(a.ID, *a)
}

func (r *announcements) GetByID(_ context.Context, id objID) (*models.Announcement, error) {
	a, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *announcements) List(_ context.Context, f db.AnnouncementFilter) ([]models.Announcement, int64, error) {
	courseIDs := make(map[objID]bool, len(f.CourseIDs))
	for _, id := range f.CourseIDs {
		courseIDs[id] = true
	}
	items, total := r.t.page(func(a models.Announcement) bool {
		if f.All || a.Type == models.AnnouncementGeneral {
			return true
		}
		return a.Type == models.AnnouncementCourse && courseIDs[a.CourseID]
	}, func(a, b models.Announcement) bool { return a.CreatedAt.After(b.CreatedAt) }, f.Page)
	return items, total, nil
}

func (r *announcements) Update(_ context.Context, a *models.Announcement) error {
	return r.t.replace(a.ID, *a)
}

func (r *announcements) Delete(_ context.Context, id objID) error {
	return r.t.remove(id)
}

type notifications struct{ t *table[objID, models.Notification] }

func (r *notifications) InsertMany(_ context.Context, ns []*models.Notification) error {
	for _, n := range ns {
		newID(&n.ID)
		if err := r.t.insert(n.ID, *n); err != nil {
			return err
		}
	}
	return nil
}

func (r *notifications) List(_ context.Context, f db.NotificationFilter) ([]models.Notification, int64, error) {
	items, total := r.t.page(func(n models.Notification) bool {
		return n.RecipientID == f.RecipientID && (!f.UnreadOnly || !n.Read)
	}, func(a, b models.Notification) bool { return a.CreatedAt.After(b.CreatedAt) }, f.Page)
	return items, total, nil
}

func (r *notifications) CountUnread(_ context.Context, recipientID objID) (int64, error) {
	return r.t.count(func(n models.Notification) bool { return n.RecipientID == recipientID && !n.Read }), nil
}

func (r *notifications) MarkRead(_ context.Context, id, recipientID objID, at time.Time) error {
	n := r.t.update(func(n models.Notification) bool {
		return n.ID == id && n.RecipientID == recipientID
	}, func(n *models.Notification) {
		n.Read = true
		n.ReadAt = &at
	})
	if n == 0 {
		return errors.Wrap(apperr.ErrNotFound, "notification")
	}
	return nil
}

func (r *notifications) MarkAllRead(_ context.Context, recipientID objID, at time.Time) (int64, error) {
	n := r.t.update(func(n models.Notification) bool {
		return n.RecipientID == recipientID && !n.Read
	}, func(n *models.Notification) {
		n.Read = true
		n.ReadAt = &at
	})
	return int64(n), nil
}

type auditLogs struct{ t *table[objID, models.AuditLog] }

func (r *auditLogs) Insert(_ context.Context, l *models.AuditLog) error {
	newID(&l.ID)
	return r.t.insert(l.ID, *l)
}

func (r *auditLogs) List(_ context.Context, f db.AuditFilter) ([]models.AuditLog, int64, error) {
	items, total := r.t.page(func(l models.AuditLog) bool {
		if !f.ActorID.IsZero() && l.ActorID != f.ActorID {
			return false
		}
		return f.Resource == "" || l.Resource == f.Resource
	}, func(a, b models.AuditLog) bool { return a.CreatedAt.After(b.CreatedAt) }, f.Page)
	return items, total, nil
}

type carts struct{ t *table[objID, models.Cart] }

func cloneCart(c models.Cart) *models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return &c
}

func (r *carts) Get(_ context.Context, userID objID) (*models.Cart, error) {
	c, err := r.t.get(userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cloneCart(c), err
}

func (r *carts) Save(_ context.Context, c *models.Cart) error {
	r.t.upsert(c.UserID, *cloneCart(*c))
	return nil
}

func (r *carts) Clear(_ context.Context, userID objID) error {
	r.t.removeWhere(func(c models.Cart) bool { return c.UserID == userID })
	return nil
}

type orders struct{ t *table[string, models.Order] }

func (r *orders) Create(_ context.Context, o *models.Order) error {
	newID(&o.ID)
	return r.t.insert(o.Reference, *o)
}

func (r *orders) GetByReference(_ context.Context, ref string) (*models.Order, error) {
	o, err := r.t.get(ref)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orders) List(_ context.Context, f db.OrderFilter) ([]models.Order, int64, error) {
	items, total := r.t.page(func(o models.Order) bool {
		if !f.UserID.IsZero() && o.UserID != f.UserID {
			return false
		}
		return f.Status == "" || o.Status == f.Status
	}, func(a, b models.Order) bool { return a.CreatedAt.After(b.CreatedAt) }, f.Page)
	return items, total, nil
}

func (r *orders) MarkPaid(_ context.Context, ref string, at time.Time, gatewayResponse string) (bool, error) {
	n := r.t.update(func(o models.Order) bool {
		return o.Reference == ref && o.Status == models.OrderPending
	}, func(o *models.Order) {
		o.Status = models.OrderPaid
		o.PaidAt = &at
		o.GatewayResponse = gatewayResponse
		o.UpdatedAt = at
	})
	return n == 1, nil
}

func (r *orders) MarkFailed(_ context.Context, ref, gatewayResponse string) error {
	r.t.update(func(o models.Order) bool {
		return o.Reference == ref && o.Status == models.OrderPending
	}, func(o *models.Order) {
		o.Status = models.OrderFailed
		o.GatewayResponse = gatewayResponse
		o.UpdatedAt = time.Now().UTC()
	})
	return nil
}

func (r *orders) Revenue(_ context.Context) (int64, int64, error) {
	var n, total int64
	for _, o := range r.t.filter(func(o models.Order) bool { return o.Status == models.OrderPaid }, nil) {
		n++
		total += o.Total
	}
	return n, total, nil
}

type enrollments struct{ t *table[objID, models.Enrollment] }

func (r *enrollments) Create(_ context.Context, e *models.Enrollment) error {
	newID(&e.ID)
	return r.t.insertUnique(e.ID, *e, func(a, b models.Enrollment) bool {
		return a.UserID == b.UserID && a.CourseID == b.CourseID
	})
}

func (r *enrollments) Get(_ context.Context, userID, courseID objID) (*models.Enrollment, error) {
	e, err := r.t.first(func(e models.Enrollment) bool { return e.UserID == userID && e.CourseID == courseID })
	if err != nil {
		return nil, err
	}
	e.Progress = append([]string{}, e.Progress...)
	return &e, nil
}

func (r *enrollments) ListByUser(_ context.Context, userID objID) ([]models.Enrollment, error) {
	return r.t.filter(func(e models.Enrollment) bool { return e.UserID == userID },
		func(a, b models.Enrollment) bool { return a.EnrolledAt.After(b.EnrolledAt) }), nil
}

func (r *enrollments) ListUserIDsByCourse(_ context.Context, courseID objID) ([]objID, error) {
	rows := r.t.filter(func(e models.Enrollment) bool {
		return e.CourseID == courseID && e.Status != models.EnrollmentRevoked
	}, nil)
	ids := make([]objID, len(rows))
	for i, e := range rows {
		ids[i] = e.UserID
	}
	return ids, nil
}

func (r *enrollments) Update(_ context.Context, e *models.Enrollment) error {
	return r.t.replace(e.ID, *e)
}

func (r *enrollments) Count(_ context.Context) (int64, error) {
	return r.t.count(nil), nil
}

type media struct{ t *table[objID, models.Media] }

func (r *media) Create(_ context.Context, m *models.Media) error {
	newID(&m.ID)
	return r.t.insert(m.ID, *m)
}

func (r *media) GetByID(_ context.Context, id objID) (*models.Media, error) {
	m, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *media) List(_ context.Context, p db.Page) ([]models.Media, int64, error) {
	items, total := r.t.page(nil, func(a, b models.Media) bool { return a.CreatedAt.After(b.CreatedAt) }, p)
	return items, total, nil
}

func (r *media) Delete(_ context.Context, id objID) error {
	return r.t.remove(id)
}
