package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/validate"
)

type TrackInput struct {
	Name         string   `json:"name" validate:"required,max=150"`
	Description  string   `json:"description" validate:"max=5000"`
	Duration     string   `json:"duration" validate:"max=100"`
	CategoryID   string   `json:"category_id" validate:"omitempty,objectid"`
	Requirements []string `json:"requirements" validate:"omitempty,dive,max=500"`
	CourseIDs    []string `json:"course_ids" validate:"omitempty,dive,objectid"`
}

// TrackView is a track with its courses resolved.
type TrackView struct {
	models.CareerTrack
	Courses []models.CourseSummary `json:"courses"`
}

// TrackService manages career tracks.
type TrackService struct {
	tracks     db.Tracks
	courses    db.Courses
	categories db.Categories
	audit      *Auditor
	clock      clock
}

// NewTrackService wires tracks to the catalog.
func NewTrackService(tracks db.Tracks, courses db.Courses, categories db.Categories, audit *Auditor) *TrackService {
	return &TrackService{tracks: tracks, courses: courses, categories: categories, audit: audit}
}

// resolve loads every course referenced by ts in one query. Public callers
// only see published courses.
func (s *TrackService) resolve(ctx context.Context, ts []models.CareerTrack, publishedOnly bool) ([]TrackView, error) {
	var ids []primitive.ObjectID
	for _, t := range ts {
		ids = append(ids, t.CourseIDs...)
	}
	var status models.CourseStatus
	if publishedOnly {
		status = models.CoursePublished
	}
	byID, err := coursesByID(ctx, s.courses, ids, status)
	if err != nil {
		return nil, err
	}

	views := make([]TrackView, 0, len(ts))
	for _, t := range ts {
		v := TrackView{CareerTrack: t, Courses: []models.CourseSummary{}}
		for _, id := range t.CourseIDs {
			if c, ok := byID[id]; ok {
				v.Courses = append(v.Courses, c.Summary())
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// List returns the tracks of a category, or all when categoryID is zero.
func (s *TrackService) List(ctx context.Context, categoryID primitive.ObjectID, publishedOnly bool) ([]TrackView, error) {
	ts, err := s.tracks.List(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ts, publishedOnly)
}

func (s *TrackService) Get(ctx context.Context, id primitive.ObjectID, publishedOnly bool) (*TrackView, error) {
	t, err := s.tracks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.resolve(ctx, []models.CareerTrack{*t}, publishedOnly)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *TrackService) apply(ctx context.Context, t *models.CareerTrack, in TrackInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return err
	}
	ids, err := parseIDs("course_ids", in.CourseIDs)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		_, total, err := s.courses.List(ctx, db.CourseFilter{IDs: ids, Page: db.Page{Limit: 1}})
		if err != nil {
			return err
		}
		if total != int64(len(ids)) {
			return apperr.NewValidationError("course_ids", "every course in a track must exist")
		}
	}
	categoryID := primitive.NilObjectID
	if in.CategoryID != "" {
		categoryID, _ = primitive.ObjectIDFromHex(in.CategoryID)
		if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
			if isNotFound(err) {
				return apperr.NewValidationError("category_id", "category does not exist")
			}
			return err
		}
	}

	t.Name = in.Name
	t.Description = in.Description
	t.Duration = in.Duration
	t.CategoryID = categoryID
	t.Requirements = in.Requirements
	t.CourseIDs = ids
	return nil
}

// Create adds a career track.
func (s *TrackService) Create(ctx context.Context, actor *models.User, in TrackInput) (*TrackView, error) {
	now := s.clock.now()
	t := &models.CareerTrack{CreatedAt: now, UpdatedAt: now}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}
	if err := s.tracks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionCreate, Resource: "track", ResourceID: t.ID.Hex(), Details: map[string]interface{}{"name": t.Name}})
	return s.Get(ctx, t.ID, false)
}

// Update edits a career track.
func (s *TrackService) Update(ctx context.Context, actor *models.User, id primitive.ObjectID, in TrackInput) (*TrackView, error) {
	t, err := s.tracks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.clock.now()
	if err := s.tracks.Update(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionUpdate, Resource: "track", ResourceID: t.ID.Hex(), Details: map[string]interface{}{"name": t.Name}})
	return s.Get(ctx, t.ID, false)
}

// Delete removes a career track.
func (s *TrackService) Delete(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	t, err := s.tracks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tracks.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, Entry{Actor: actor, Action: ActionDelete, Resource: "track", ResourceID: id.Hex(), Details: map[string]interface{}{"name": t.Name}})
	return nil
}
