package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

func (s CourseStatus) Valid() bool {
	return s == CourseDraft || s == CoursePublished || s == CourseArchived
}

// DefaultPlan is the plan name that maps to the course's base price.
const DefaultPlan = "full"

type Course struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description" json:"description"`
	CategoryID  primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Instructor  Instructor         `bson:"instructor" json:"instructor"`
	// Price is in minor currency units.
	Price      int64              `bson:"price" json:"price"`
	Plans      []PricingPlan      `bson:"plans,omitempty" json:"plans,omitempty"`
	Duration   string             `bson:"duration,omitempty" json:"duration,omitempty"`
	ImageURL   string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VideoURL   string             `bson:"video_url,omitempty" json:"video_url,omitempty"`
	Curriculum []Section          `bson:"curriculum" json:"curriculum"`
	Status     CourseStatus       `bson:"status" json:"status"`
	CreatedBy  primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

type Instructor struct {
	ID   primitive.ObjectID `bson:"id,omitempty" json:"id,omitempty"`
	Name string             `bson:"name" json:"name"`
}

type PricingPlan struct {
	Name  string `bson:"name" json:"name" validate:"required"`
	Price int64  `bson:"price" json:"price" validate:"gte=0"`
}

type Section struct {
	Title   string   `bson:"title" json:"title" validate:"required"`
	Lessons []Lesson `bson:"lessons" json:"lessons" validate:"dive"`
}

type Lesson struct {
	Title    string `bson:"title" json:"title" validate:"required"`
	Duration string `bson:"duration,omitempty" json:"duration,omitempty"`
	VideoURL string `bson:"video_url,omitempty" json:"video_url,omitempty"`
}

// LessonCount returns the number of lessons across all sections.
func (c *Course) LessonCount() int {
	n := 0
	for _, s := range c.Curriculum {
		n += len(s.Lessons)
	}
	return n
}

// HasLesson reports whether the zero-based section and lesson indexes address a lesson.
func (c *Course) HasLesson(section, lesson int) bool {
	if section < 0 || section >= len(c.Curriculum) {
		return false
	}
	return lesson >= 0 && lesson < len(c.Curriculum[section].Lessons)
}

// PlanPrice resolves the price of a named plan. The empty name and DefaultPlan use Price.
func (c *Course) PlanPrice(plan string) (int64, bool) {
	if plan == "" || plan == DefaultPlan {
		return c.Price, true
	}
	for _, p := range c.Plans {
		if p.Name == plan {
			return p.Price, true
		}
	}
	return 0, false
}

// CourseSummary is the compact course view embedded in tracks and carts.
type CourseSummary struct {
	ID       primitive.ObjectID `json:"id"`
	Title    string             `json:"title"`
	Slug     string             `json:"slug"`
	Price    int64              `json:"price"`
	ImageURL string             `json:"image_url,omitempty"`
}

func (c *Course) Summary() CourseSummary {
	return CourseSummary{ID: c.ID, Title: c.Title, Slug: c.Slug, Price: c.Price, ImageURL: c.ImageURL}
}
