package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/utils"
	"github.com/arzan03/coursehub/internal/validate"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// CategoryService manages course categories.
type CategoryService struct {
	categories db.Categories
	courses    db.Courses
	audit      *Auditor
	clock      clock
}

// NewCategoryService wires categories to their store.
func NewCategoryService(categories db.Categories, courses db.Courses, audit *Auditor) *CategoryService {
	return &CategoryService{categories: categories, courses: courses, audit: audit}
}

// List returns every category by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (in *CategoryInput) normalize() (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	slug := utils.Slugify(in.Name)
	if slug == "" {
		return "", apperr.NewValidationError("name", "name must contain letters or digits")
	}
	return slug, nil
}

// Create adds a category with a slug derived from its name.
func (s *CategoryService) Create(ctx context.Context, actor *models.User, in CategoryInput) (*models.Category, error) {
	slug, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	c := &models.Category{Name: in.Name, Slug: slug, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.Create(ctx, c); err != nil {
		if isConflict(err) {
			return nil, errors.Wrap(apperr.ErrConflict, "a category with this name already exists")
		}
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionCreate, Resource: "category", ResourceID: c.ID.Hex(), Details: map[string]interface{}{"name": c.Name}})
	return c, nil
}

// Update renames a category.
func (s *CategoryService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, in CategoryInput) (*models.Category, error) {
	slug, err := in.normalize()
	if err != nil {
		return nil, err
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Slug, c.Description = in.Name, slug, in.Description
	c.UpdatedAt = s.clock.now()
	if err := s.categories.Update(ctx, c); err != nil {
		if isConflict(err) {
			return nil, errors.Wrap(apperr.ErrConflict, "a category with this name already exists")
		}
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionUpdate, Resource: "category", ResourceID: c.ID.Hex(), Details: map[string]interface{}{"name": c.Name}})
	return c, nil
}

// Delete refuses to remove a category that courses still use.
func (s *CategoryService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.courses.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errors.Wrapf(apperr.ErrConflict, "category is used by %d course(s)", n)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionDelete, Resource: "category", ResourceID: id.Hex(), Details: map[string]interface{}{"name": c.Name}})
	return nil
}
