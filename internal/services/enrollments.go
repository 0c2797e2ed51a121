package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
)

// EnrollmentView pairs an enrollment with its course.
type EnrollmentView struct {
	models.Enrollment
	Course       *models.CourseSummary `json:"course,omitempty"`
	TotalLessons int                   `json:"total_lessons"`
}

// EnrollmentService grants course access and tracks progress.
type EnrollmentService struct {
	enrollments db.Enrollments
	courses     db.Courses
	clock       clock
}

// NewEnrollmentService wires enrollments to the catalog.
func NewEnrollmentService(enrollments db.Enrollments, courses db.Courses) *EnrollmentService {
	return &EnrollmentService{enrollments: enrollments, courses: courses}
}

func (s *EnrollmentService) enroll(ctx context.Context, userID, courseID, orderID primitive.ObjectID) (*models.Enrollment, error) {
	now := s.clock.now()
	e := &models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		OrderID:    orderID,
		Status:     models.EnrollmentActive,
		Progress:   []string{},
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	if err := s.enrollments.Create(ctx, e); err != nil {
		if isConflict(err) {
			return nil, errors.Wrap(apperr.ErrConflict, "already enrolled")
		}
		return nil, err
	}
	return e, nil
}

// EnrollFree enrolls the user in a published course that costs nothing.
func (s *EnrollmentService) EnrollFree(ctx context.Context, user *models.User, courseID primitive.ObjectID) (*models.Enrollment, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CoursePublished {
		return nil, errors.Wrap(apperr.ErrNotFound, "course")
	}
	if c.Price > 0 {
		return nil, errors.Wrap(apperr.ErrPaymentFailed, "this course requires payment")
	}
	return s.enroll(ctx, user.ID, c.ID, primitive.NilObjectID)
}

// List returns the user's enrollments with course summaries.
func (s *EnrollmentService) List(ctx context.Context, userID primitive.ObjectID) ([]EnrollmentView, error) {
	es, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]EnrollmentView, 0, len(es))
	if len(es) == 0 {
		return views, nil
	}

	ids := make([]primitive.ObjectID, 0, len(es))
	for _, e := range es {
		ids = append(ids, e.CourseID)
	}
	byID, err := coursesByID(ctx, s.courses, ids, "")
	if err != nil {
		return nil, err
	}
	for _, e := range es {
		v := EnrollmentView{Enrollment: e}
		if c, ok := byID[e.CourseID]; ok {
			sum := c.Summary()
			v.Course = &sum
			v.TotalLessons = c.LessonCount()
		}
		views = append(views, v)
	}
	return views, nil
}

// parseLessonKey reads "<section>.<lesson>" with zero-based indexes.
func parseLessonKey(key string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(key), ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	section, err1 := strconv.Atoi(parts[0])
	lesson, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return section, lesson, true
}

// CompleteLesson records a finished lesson and completes the enrollment once
// every lesson is done.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, userID, courseID primitive.ObjectID, lesson string) (*models.Enrollment, error) {
	e, err := s.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EnrollmentRevoked {
		return nil, errors.Wrap(apperr.ErrForbidden, "enrollment revoked")
	}
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	section, idx, ok := parseLessonKey(lesson)
	if !ok || !c.HasLesson(section, idx) {
		return nil, apperr.NewValidationError("lesson", "lesson must address an existing lesson as <section>.<lesson>")
	}
	key := fmt.Sprintf("%d.%d", section, idx)
	for _, done := range e.Progress {
		if done == key {
			return e, nil
		}
	}

	e.Progress = append(e.Progress, key)
	if completedLessons(c, e.Progress) >= c.LessonCount() {
		e.Status = models.EnrollmentCompleted
	}
	e.UpdatedAt = s.clock.now()
	if err := s.enrollments.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// completedLessons counts the progress keys that still address a lesson of c.
func completedLessons(c *models.Course, progress []string) int {
	n := 0
	for _, key := range progress {
		if section, idx, ok := parseLessonKey(key); ok && c.HasLesson(section, idx) {
			n++
		}
	}
	return n
}
