package services

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/validate"
)

type CartInput struct {
	CourseID string `json:"course_id" validate:"required,objectid"`
	Plan     string `json:"plan" validate:"max=100"`
}

type CartView struct {
	Items    []models.CartItem `json:"items"`
	Total    int64             `json:"total"`
	Currency string            `json:"currency"`
}

// CartService manages each user's cart.
type CartService struct {
	carts       db.Carts
	courses     db.Courses
	enrollments db.Enrollments
	currency    string
	clock       clock
}

// NewCartService wires the cart to the catalog and enrollments.
func NewCartService(carts db.Carts, courses db.Courses, enrollments db.Enrollments, currency string) *CartService {
	return &CartService{carts: carts, courses: courses, enrollments: enrollments, currency: currency}
}

func (s *CartService) view(c *models.Cart) *CartView {
	items := c.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return &CartView{Items: items, Total: c.Total(), Currency: s.currency}
}

// Get returns the cart with its total.
func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*CartView, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// Add puts a published course in the cart at its current price for plan.
func (s *CartService) Add(ctx context.Context, userID primitive.ObjectID, in CartInput) (*CartView, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	courseID, _ := primitive.ObjectIDFromHex(in.CourseID)
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CoursePublished {
		return nil, errors.Wrap(apperr.ErrNotFound, "course")
	}
	price, ok := course.PlanPrice(in.Plan)
	if !ok {
		return nil, apperr.NewValidationError("plan", "unknown plan for this course")
	}
	if _, err := s.enrollments.Get(ctx, userID, courseID); err == nil {
		return nil, errors.Wrap(apperr.ErrConflict, "already enrolled in this course")
	} else if !isNotFound(err) {
		return nil, err
	}

	plan := in.Plan
	if plan == "" {
		plan = models.DefaultPlan
	}
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	c.Put(models.CartItem{CourseID: course.ID, Title: course.Title, Plan: plan, Price: price, AddedAt: now})
	c.UpdatedAt = now
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// Remove drops a course from the cart.
func (s *CartService) Remove(ctx context.Context, userID, courseID primitive.ObjectID) (*CartView, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(courseID) {
		return nil, errors.Wrap(apperr.ErrNotFound, "cart item")
	}
	c.UpdatedAt = s.clock.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) error {
	return s.carts.Clear(ctx, userID)
}
