package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CareerTrack groups courses into a learning path.
type CareerTrack struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Description  string               `bson:"description" json:"description"`
	Duration     string               `bson:"duration,omitempty" json:"duration,omitempty"`
	CategoryID   primitive.ObjectID   `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Requirements []string             `bson:"requirements,omitempty" json:"requirements,omitempty"`
	CourseIDs    []primitive.ObjectID `bson:"course_ids" json:"course_ids"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}
