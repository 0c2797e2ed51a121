package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/validate"
)

type AnnouncementInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=20000"`
	Type     string `json:"type" validate:"omitempty,oneof=general course"`
	CourseID string `json:"course_id" validate:"omitempty,objectid"`
}

// AnnouncementService manages general and course announcements.
type AnnouncementService struct {
	announcements db.Announcements
	courses       db.Courses
	enrollments   db.Enrollments
	notify        *Dispatcher
	audit         *Auditor
	log           logger.Logger
	clock         clock
}

// NewAnnouncementService wires announcements to their stores and the notifier.
func NewAnnouncementService(announcements db.Announcements, courses db.Courses, enrollments db.Enrollments, notify *Dispatcher, audit *Auditor, log logger.Logger) *AnnouncementService {
	return &AnnouncementService{
		announcements: announcements,
		courses:       courses,
		enrollments:   enrollments,
		notify:        notify,
		audit:         audit,
		log:           log,
	}
}

// List returns general announcements plus those for courses the viewer is
// enrolled in. Staff see everything.
func (s *AnnouncementService) List(ctx context.Context, viewer *models.User, page db.Page) ([]models.Announcement, int64, error) {
	f := db.AnnouncementFilter{All: viewer.Role.IsStaff(), Page: page}
	if !f.All {
		enrollments, err := s.enrollments.ListByUser(ctx, viewer.ID)
		if err != nil {
			return nil, 0, err
		}
		for _, e := range enrollments {
			if e.Status != models.EnrollmentRevoked {
				f.CourseIDs = append(f.CourseIDs, e.CourseID)
			}
		}
	}
	return s.announcements.List(ctx, f)
}

func (s *AnnouncementService) apply(ctx context.Context, a *models.Announcement, in AnnouncementInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return err
	}
	a.Title = in.Title
	a.Content = in.Content
	a.Type = models.AnnouncementType(in.Type)
	if a.Type == "" {
		a.Type = models.AnnouncementGeneral
	}
	a.CourseID = primitive.NilObjectID
	if a.Type == models.AnnouncementGeneral {
		return nil
	}

	if in.CourseID == "" {
		return apperr.NewValidationError("course_id", "course_id is required for course announcements")
	}
	id, _ := primitive.ObjectIDFromHex(in.CourseID)
	if _, err := s.courses.GetByID(ctx, id); err != nil {
		if isNotFound(err) {
			return apperr.NewValidationError("course_id", "course does not exist")
		}
		return err
	}
	a.CourseID = id
	return nil
}

// Create stores the announcement and notifies its audience.
func (s *AnnouncementService) Create(ctx context.Context, actor *models.User, in AnnouncementInput) (*models.Announcement, error) {
	now := s.clock.now()
	a := &models.Announcement{CreatedBy: actor.ID, CreatedAt: now, UpdatedAt: now}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionCreate, Resource: "announcement", ResourceID: a.ID.Hex(), Details: map[string]interface{}{"title": a.Title, "type": string(a.Type)}})

	aud := ToEveryone()
	if a.Type == models.AnnouncementCourse {
		ids, err := s.enrollments.ListUserIDsByCourse(ctx, a.CourseID)
		if err != nil {
			s.log.Error("resolving announcement audience", err, a.ID.Hex())
			return a, nil
		}
		aud = ToUsers(ids...)
	}
	if _, err := s.notify.Send(ctx, Message{
		Type:     "announcement",
		Title:    a.Title,
		Message:  a.Content,
		Severity: models.SeverityInfo,
		Link:     "/announcements/" + a.ID.Hex(),
		SenderID: actor.ID,
	}, aud); err != nil {
		s.log.Error("notifying announcement audience", err, a.ID.Hex())
	}
	return a, nil
}

// Update edits an announcement.
func (s *AnnouncementService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, in AnnouncementInput) (*models.Announcement, error) {
	a, err := s.announcements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.clock.now()
	if err := s.announcements.Update(ctx, a); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionUpdate, Resource: "announcement", ResourceID: a.ID.Hex(), Details: map[string]interface{}{"title": a.Title}})
	return a, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	a, err := s.announcements.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.announcements.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionDelete, Resource: "announcement", ResourceID: id.Hex(), Details: map[string]interface{}{"title": a.Title}})
	return nil
}
