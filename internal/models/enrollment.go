package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentRevoked   EnrollmentStatus = "revoked"
)

type Enrollment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	CourseID primitive.ObjectID `bson:"course_id" json:"course_id"`
	OrderID  primitive.ObjectID `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Status   EnrollmentStatus   `bson:"status" json:"status"`
	// Progress lists completed lessons as "<section>.<lesson>" keys.
	Progress   []string  `bson:"progress" json:"progress"`
	EnrolledAt time.Time `bson:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
