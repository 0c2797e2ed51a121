package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
	"github.com/arzan03/coursehub/internal/utils"
	"github.com/arzan03/coursehub/internal/validate"
)

type CourseInput struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"max=20000"`
	CategoryID  string               `json:"category_id" validate:"omitempty,objectid"`
	Price       int64                `json:"price" validate:"gte=0"`
	Plans       []models.PricingPlan `json:"plans" validate:"omitempty,dive"`
	Duration    string               `json:"duration" validate:"max=100"`
	ImageURL    string               `json:"image_url" validate:"omitempty,url"`
	VideoURL    string               `json:"video_url" validate:"omitempty,url"`
	Curriculum  []models.Section     `json:"curriculum" validate:"omitempty,dive"`
	// InstructorID lets admins assign the course to a facilitator.
	InstructorID string `json:"instructor_id" validate:"omitempty,objectid"`
}

// CourseService manages the course catalog.
type CourseService struct {
	courses    db.Courses
	categories db.Categories
	users      db.Users
	audit      *Auditor
	clock      clock
}

// NewCourseService wires the catalog to its stores.
func NewCourseService(courses db.Courses, categories db.Categories, users db.Users, audit *Auditor) *CourseService {
	return &CourseService{courses: courses, categories: categories, users: users, audit: audit}
}

// ListPublished returns the public catalog.
func (s *CourseService) ListPublished(ctx context.Context, f db.CourseFilter) ([]models.Course, int64, error) {
	f.Status = models.CoursePublished
	f.InstructorID = primitive.NilObjectID
	return s.courses.List(ctx, f)
}

// Get returns a course. Unpublished courses are only visible to course managers.
func (s *CourseService) Get(ctx context.Context, id primitive.ObjectID, viewer *models.User) (*models.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CoursePublished && (viewer == nil || !viewer.Can(roles.ManageCourses)) {
		return nil, errors.Wrap(apperr.ErrNotFound, "course")
	}
	return c, nil
}

// AdminList lists courses in every status. Facilitators only see their own.
func (s *CourseService) AdminList(ctx context.Context, actor *models.User, f db.CourseFilter) ([]models.Course, int64, error) {
	if !actor.Role.AtLeast(roles.Admin) {
		f.InstructorID = actor.ID
	}
	return s.courses.List(ctx, f)
}

func canEditCourse(actor *models.User, c *models.Course) bool {
	return actor.Role.AtLeast(roles.Admin) || c.Instructor.ID == actor.ID
}

func (s *CourseService) editable(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(actor, c) {
		return nil, errors.Wrap(apperr.ErrForbidden, "only the course instructor or an admin can change this course")
	}
	return c, nil
}

func (s *CourseService) apply(ctx context.Context, actor *models.User, c *models.Course, in CourseInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return err
	}
	seen := map[string]bool{models.DefaultPlan: true}
	for _, p := range in.Plans {
		if seen[p.Name] {
			return apperr.NewValidationError("plans", "plan names must be unique and not "+models.DefaultPlan)
		}
		seen[p.Name] = true
	}

	categoryID := primitive.NilObjectID
	if in.CategoryID != "" {
		id, _ := primitive.ObjectIDFromHex(in.CategoryID)
		if _, err := s.categories.GetByID(ctx, id); err != nil {
			if isNotFound(err) {
				return apperr.NewValidationError("category_id", "category does not exist")
			}
			return err
		}
		categoryID = id
	}

	if in.InstructorID != "" && in.InstructorID != c.Instructor.ID.Hex() {
		if !actor.Role.AtLeast(roles.Admin) {
			return errors.Wrap(apperr.ErrForbidden, "only admins can assign instructors")
		}
		id, _ := primitive.ObjectIDFromHex(in.InstructorID)
		instructor, err := s.users.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return apperr.NewValidationError("instructor_id", "instructor does not exist")
			}
			return err
		}
		if !instructor.Role.AtLeast(roles.Facilitator) {
			return apperr.NewValidationError("instructor_id", "instructor must be a facilitator or above")
		}
		c.Instructor = models.Instructor{ID: instructor.ID, Name: instructor.PublicName()}
	}

	c.Title = in.Title
	c.Slug = utils.Slugify(in.Title)
	c.Description = in.Description
	c.CategoryID = categoryID
	c.Price = in.Price
	c.Plans = in.Plans
	c.Duration = in.Duration
	c.ImageURL = in.ImageURL
	c.VideoURL = in.VideoURL
	c.Curriculum = in.Curriculum
	if c.Curriculum == nil {
		c.Curriculum = []models.Section{}
	}
	return nil
}

// Create adds a draft course taught by the actor unless another instructor is given.
func (s *CourseService) Create(ctx context.Context, actor *models.User, in CourseInput) (*models.Course, error) {
	now := s.clock.now()
	c := &models.Course{
		Instructor: models.Instructor{ID: actor.ID, Name: actor.PublicName()},
		Status:     models.CourseDraft,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.apply(ctx, actor, c, in); err != nil {
		return nil, err
	}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionCreate, Resource: "course", ResourceID: c.ID.Hex(), Details: map[string]interface{}{"title": c.Title}})
	return c, nil
}

// Update edits a course the actor may edit.
func (s *CourseService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, in CourseInput) (*models.Course, error) {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, c, in); err != nil {
		return nil, err
	}
	if c.Status == models.CoursePublished {
		if err := checkPublishable(c); err != nil {
			return nil, err
		}
	}
	c.UpdatedAt = s.clock.now()
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionUpdate, Resource: "course", ResourceID: c.ID.Hex(), Details: map[string]interface{}{"title": c.Title}})
	return c, nil
}

// Delete removes a course the actor may edit.
func (s *CourseService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionDelete, Resource: "course", ResourceID: c.ID.Hex(), Details: map[string]interface{}{"title": c.Title}})
	return nil
}

func checkPublishable(c *models.Course) error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return apperr.NewValidationError("title", "a published course needs a title")
	case c.CategoryID.IsZero():
		return apperr.NewValidationError("category_id", "a published course needs a category")
	case c.LessonCount() == 0:
		return apperr.NewValidationError("curriculum", "a published course needs at least one lesson")
	}
	return nil
}

// SetStatus changes the publication status of a course.
func (s *CourseService) SetStatus(ctx context.Context, actor *models.User, id primitive.ObjectID, status models.CourseStatus) (*models.Course, error) {
	if !status.Valid() {
		return nil, apperr.NewValidationError("status", "status must be one of draft, published, archived")
	}
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if status == models.CoursePublished {
		if err := checkPublishable(c); err != nil {
			return nil, err
		}
	}
	previous := c.Status
	c.Status = status
	c.UpdatedAt = s.clock.now()
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{
		Actor:      actor,
		Action:     ActionStatusChange,
		Resource:   "course",
		ResourceID: c.ID.Hex(),
		Details:    map[string]interface{}{"from": string(previous), "to": string(status)},
	})
	return c, nil
}

// SetImage points the course at an uploaded image.
func (s *CourseService) SetImage(ctx context.Context, actor *models.User, id primitive.ObjectID, url string) (*models.Course, error) {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	c.ImageURL = url
	c.UpdatedAt = s.clock.now()
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Editable checks that actor may change course id without modifying it.
func (s *CourseService) Editable(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	_, err := s.editable(ctx, actor, id)
	return err
}

// coursesByID loads the given courses page by page. A non-empty status filters them.
func coursesByID(ctx context.Context, courses db.Courses, ids []primitive.ObjectID, status models.CourseStatus) (map[primitive.ObjectID]models.Course, error) {
	out := make(map[primitive.ObjectID]models.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	f := db.CourseFilter{IDs: ids, Status: status, Page: db.Page{Limit: 100}}
	for p := int64(1); ; p++ {
		f.Page.Page = p
		cs, total, err := courses.List(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			out[c.ID] = c
		}
		if len(cs) == 0 || p*f.Page.Limit >= total {
			return out, nil
		}
	}
}
