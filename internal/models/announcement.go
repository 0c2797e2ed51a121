package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AnnouncementType string

const (
	AnnouncementGeneral AnnouncementType = "general"
	AnnouncementCourse  AnnouncementType = "course"
)

type Announcement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Type      AnnouncementType   `bson:"type" json:"type"`
	CourseID  primitive.ObjectID `bson:"course_id,omitempty" json:"course_id,omitempty"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
